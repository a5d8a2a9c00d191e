package server

import (
	"time"

	"github.com/emurenMRz/mailmark/internal/record"
)

type errorResponse struct {
	Error string `json:"error"`
}

type pageResponse[T any] struct {
	Items     []T   `json:"items"`
	Total     int   `json:"total"`
	Page      int   `json:"page"`
	Size      int   `json:"size"`
	Pages     int   `json:"pages"`
	PageSizes []int `json:"pageSizes"`
}

type configResponse struct {
	Engines           []string `json:"engines"`
	PageSizes         []int    `json:"pageSizes"`
	PasswordMinLength int      `json:"passwordMinLength"`
	PasswordSpecials  string   `json:"passwordSpecials"`
	ValidationKinds   []string `json:"validationKinds"`
	MaxCount          int      `json:"maxCount"`
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,mail_address"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,mail_address"`
	Password string `json:"password" validate:"required,strong_password,password_length"`
}

type sessionResponse struct {
	Session string `json:"session"`
	UserID  string `json:"userId"`
	Email   string `json:"email"`
}

type validateRequest struct {
	Kind  string `json:"kind" validate:"required"`
	Value string `json:"value"`
	Multi bool   `json:"multi"`
}

// bookmarkRequest is a record as sent by the client. View state fields are
// accepted and ignored.
type bookmarkRequest struct {
	ID           string    `json:"id"`
	Address      string    `json:"address" validate:"required,mail_address"`
	Link         string    `json:"link" validate:"omitempty,page_url"`
	CreationDate time.Time `json:"creationDate"`
	SearchEngine string    `json:"searchEngine" validate:"omitempty,alnum_text,max=64"`
	SearchKey    string    `json:"searchKey" validate:"omitempty,mail_key"`
	Comments     string    `json:"comments" validate:"max=2000"`
	Type         string    `json:"type"`
	Selected     bool      `json:"selected"`
	Expanded     bool      `json:"expanded"`
	Bookmarked   bool      `json:"bookmarked"`
}

func (b bookmarkRequest) record() record.Record {
	return record.Record{
		ID: b.ID,
		Raw: record.Raw{
			Address:      b.Address,
			Link:         b.Link,
			CreationDate: b.CreationDate,
			SearchEngine: b.SearchEngine,
			SearchKey:    b.SearchKey,
			Comments:     b.Comments,
		},
	}
}

type createdResponse struct {
	ID string `json:"id"`
}

type addressResponse struct {
	Index   int       `json:"index"`
	Name    string    `json:"name,omitempty"`
	Address string    `json:"address"`
	Subject string    `json:"subject,omitempty"`
	Date    time.Time `json:"date,omitzero"`
}
