package model

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/deppfellow/cardapi/internal/errs"
	"github.com/go-playground/validator/v10"
)

// Prefixes of the missing data messages.
const (
	createAction  = "Client request not created."
	replaceAction = "Client request not created/updated."
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseOIB parses an 11 digit OIB, rejecting anything else with the raw value echoed back.
func ParseOIB(raw string) (int64, error) {
	oib, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || !ValidOIB(oib) {
		return 0, errs.InvalidOIB(raw)
	}
	return oib, nil
}

// ParseID parses a positive client request id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.InvalidID(raw)
	}
	return id, nil
}

// ClientIDRequest carries the {id} path parameter.
type ClientIDRequest struct {
	RawID string `param:"id" json:"-"`
	ID    int64  `json:"-"`
}

func (r *ClientIDRequest) Validate() error {
	id, err := ParseID(r.RawID)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// OIBRequest carries the {oib} path parameter.
type OIBRequest struct {
	RawOIB string `param:"oib" json:"-"`
	OIB    int64  `json:"-"`
}

func (r *OIBRequest) Validate() error {
	oib, err := ParseOIB(r.RawOIB)
	if err != nil {
		return err
	}
	r.OIB = oib
	return nil
}

// ListClientsRequest carries the optional /clients query filters.
// Empty parameters are ignored.
type ListClientsRequest struct {
	OIB       string `query:"oib"`
	FirstName string `query:"firstName"`
	LastName  string `query:"lastName"`
	Status    string `query:"status"`

	Filter ClientFilter `json:"-"`
}

func (r *ListClientsRequest) Validate() error {
	r.Filter = ClientFilter{}

	if r.OIB != "" {
		oib, err := ParseOIB(r.OIB)
		if err != nil {
			return err
		}
		r.Filter.OIB = &oib
	}
	if r.FirstName != "" {
		r.Filter.FirstName = &r.FirstName
	}
	if r.LastName != "" {
		r.Filter.LastName = &r.LastName
	}
	if r.Status != "" {
		status := Status(strings.ToUpper(r.Status))
		if !status.Valid() {
			return errs.InvalidStatus(r.Status)
		}
		r.Filter.Status = &status
	}
	return nil
}

// ClientBody is the JSON body of create, replace and patch. Pointers tell
// an absent field from a zero value. Status is owned by the server and not read.
//
// Names are stored in colon-delimited, single-line process markers, so they
// must not contain ':' or line breaks.
type ClientBody struct {
	OIB       *int64  `json:"oib"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100,excludesall=:\r\n"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100,excludesall=:\r\n"`
}

// missing lists absent or blank required fields in the order oib, firstName, lastName.
func (b *ClientBody) missing() []string {
	var fields []string
	if b.OIB == nil {
		fields = append(fields, "oib")
	}
	if blank(b.FirstName) {
		fields = append(fields, "firstName")
	}
	if blank(b.LastName) {
		fields = append(fields, "lastName")
	}
	return fields
}

func (b *ClientBody) checkOIB() error {
	if b.OIB != nil && !ValidOIB(*b.OIB) {
		return errs.InvalidOIB(*b.OIB)
	}
	return nil
}

func (b *ClientBody) validateComplete(action string) error {
	if fields := b.missing(); len(fields) > 0 {
		return errs.MissingData(action, fields)
	}
	if err := b.checkOIB(); err != nil {
		return err
	}
	return b.validateFields()
}

// validateFields runs the struct tags. Forbidden name characters become a
// plain-text domain error; other failures stay validator errors.
func (b *ClientBody) validateFields() error {
	err := validate.Struct(b)

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		for _, fe := range fieldErrors {
			if fe.Tag() == "excludesall" {
				return errs.InvalidName(fe.Field())
			}
		}
	}
	return err
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// CreateClientRequest is the body of POST /client/card.
type CreateClientRequest struct {
	ClientBody
}

func (r *CreateClientRequest) Validate() error {
	return r.validateComplete(createAction)
}

// ToClient builds a new REQUESTED client from the body.
func (r *CreateClientRequest) ToClient() *Client {
	return &Client{
		OIB:       *r.OIB,
		FirstName: strings.TrimSpace(*r.FirstName),
		LastName:  strings.TrimSpace(*r.LastName),
		Status:    StatusRequested,
	}
}

// ReplaceClientRequest is PUT /client/card/{id}.
type ReplaceClientRequest struct {
	ClientIDRequest
	ClientBody
}

func (r *ReplaceClientRequest) Validate() error {
	if err := r.ClientIDRequest.Validate(); err != nil {
		return err
	}
	return r.validateComplete(replaceAction)
}

// PatchClientRequest is PATCH /client/card/{id}. Absent or blank fields are left unchanged.
type PatchClientRequest struct {
	ClientIDRequest
	ClientBody
}

func (r *PatchClientRequest) Validate() error {
	if err := r.ClientIDRequest.Validate(); err != nil {
		return err
	}
	if err := r.checkOIB(); err != nil {
		return err
	}
	return r.validateFields()
}

// Apply copies the present fields onto c.
func (b *ClientBody) Apply(c *Client) {
	if b.OIB != nil {
		c.OIB = *b.OIB
	}
	if !blank(b.FirstName) {
		c.FirstName = strings.TrimSpace(*b.FirstName)
	}
	if !blank(b.LastName) {
		c.LastName = strings.TrimSpace(*b.LastName)
	}
}
