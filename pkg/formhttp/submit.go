package formhttp

import (
	"context"
	"net/http"

	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/pkg/form"
	"github.com/vango-dev/formstate/pkg/upload"
)

type submitResponse struct {
	Values form.Values               `json:"values"`
	Files  map[string]*upload.Stored `json:"files,omitempty"`
}

type errorsResponse struct {
	Errors map[string]string `json:"errors"`
}

type validateResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sch, ok := s.lookup(w, r)
	if !ok {
		return
	}

	values, err := s.readValues(w, r, sch)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for _, name := range sch.FieldNames() {
		if _, ok := values[name]; ok {
			continue
		}
		kind, _ := sch.Kind(name)
		if v, ok := missingValue(kind); ok {
			values[name] = v
		}
	}

	var stored map[string]*upload.Stored
	var failure error
	hook := s.submitHook(sch.ID, &stored)
	f, err := s.newForm(sch,
		form.WithValidateOnChange(false),
		form.WithValidateOnBlur(false),
		form.WithInitialValues(values),
		form.WithOnSubmit(func(ctx context.Context, v form.Values) error {
			failure = hook(ctx, v)
			return failure
		}),
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	outcome := f.HandleSubmit(r.Context(), nil)
	s.logger.Info("form submitted", "form", sch.ID, "outcome", outcome.String())

	switch outcome {
	case form.OutcomeSubmitted:
		writeJSON(w, http.StatusOK, submitResponse{Values: f.Values(), Files: stored})
	case form.OutcomeInvalid:
		writeJSON(w, http.StatusUnprocessableEntity, errorsResponse{Errors: fieldErrors(f.Errors())})
	case form.OutcomeFailed:
		if failure == nil {
			failure = errors.Newf(errors.CategoryTransport, "submit handler panicked")
		}
		writeError(w, http.StatusInternalServerError, failure)
	default:
		writeError(w, http.StatusServiceUnavailable, errors.Newf(errors.CategoryTransport, "submit %s", outcome))
	}
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	sch, ok := s.lookup(w, r)
	if !ok {
		return
	}

	values, err := s.readValues(w, r, sch)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	f, err := s.newForm(sch, form.WithValidateOnChange(false), form.WithInitialValues(values))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	resp := validateResponse{Valid: true, Errors: make(map[string]string, len(values))}
	for name := range values {
		valid, err := f.ValidateField(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		resp.Errors[name] = f.Error(name)
		resp.Valid = resp.Valid && valid
	}
	writeJSON(w, http.StatusOK, resp)
}

// fieldErrors drops the empty entries of fields that passed.
func fieldErrors(all map[string]string) map[string]string {
	out := make(map[string]string, len(all))
	for name, msg := range all {
		if msg != "" {
			out[name] = msg
		}
	}
	return out
}
