package http

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/validator"
)

// asInputError keeps validation errors, which carry field messages, and
// turns body decoding failures into a 400.
func asInputError(err error) error {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return apperrors.InvalidInput("invalid request body: " + err.Error())
}

// decode reads an optional JSON body. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return validator.Validate(dst)
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		return asInputError(err)
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
