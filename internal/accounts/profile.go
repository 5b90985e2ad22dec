package accounts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"inkpress/internal/apperr"
	"inkpress/internal/validation"
)

// ProfileInput holds the editable profile fields present in a request.
// Sex may be explicitly cleared with null, so its presence is tracked
// separately.
type ProfileInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=30"`
	LastName  *string `json:"last_name" validate:"omitempty,max=30"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Sex       *string `json:"sex" validate:"omitnil,oneof=M F"`
	SexSet    bool    `json:"-"`
}

// DecodeProfile parses a profile payload. Unknown fields, including the
// read-only id and email, are ignored.
func DecodeProfile(body []byte) (ProfileInput, error) {
	var in ProfileInput
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return in, nil
	}
	if body[0] != '{' {
		return in, apperr.Detail("Invalid data. Expected a dictionary.")
	}
	if err := json.Unmarshal(body, &in); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return in, apperr.Field(typeErr.Field, validation.MsgNotString)
		}
		return in, apperr.Detail(fmt.Sprintf("JSON parse error - %v", err))
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err == nil {
		_, in.SexSet = present["sex"]
	}
	if err := validation.Struct(in); err != nil {
		return in, err
	}
	return in, nil
}
