package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	goahttp "goa.design/goa/v3/http"

	"enquirydesk/internal/domain"
	"enquirydesk/internal/services"
	apperrors "enquirydesk/pkg/errors"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var submitMessages = map[domain.Kind]string{
	domain.KindGeneric: "Enquiry submitted successfully",
	domain.KindPackage: "Package enquiry submitted successfully",
	domain.KindCustom:  "Custom quote enquiry submitted successfully",
}

type submitResponse struct {
	Success   bool   `json:"success"`
	EnquiryID string `json:"enquiryId"`
	Message   string `json:"message"`
}

type listResponse struct {
	Success   bool              `json:"success"`
	Enquiries []*domain.Enquiry `json:"enquiries"`
	Total     int               `json:"total"`
	Stats     domain.Stats      `json:"stats"`
	Warning   string            `json:"warning,omitempty"`
}

type enquiryResponse struct {
	Success bool            `json:"success"`
	Enquiry *domain.Enquiry `json:"enquiry"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Fields  []string `json:"fields,omitempty"`
	ID      string   `json:"id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.encode(w, r, http.StatusOK, s.health.Check(r.Context()))
}

func (s *Server) handleSubmit(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p services.SubmitPayload
		if err := s.decode(w, r, &p); err != nil {
			s.writeError(w, r, err)
			return
		}

		e, err := s.enquiries.Submit(r.Context(), kind, &p)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.encode(w, r, http.StatusCreated, submitResponse{
			Success:   true,
			EnquiryID: e.ID,
			Message:   submitMessages[kind],
		})
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.enquiries.List(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.encode(w, r, http.StatusOK, listResponse{
		Success:   true,
		Enquiries: res.Enquiries,
		Total:     res.Total,
		Stats:     res.Stats,
		Warning:   res.Warning,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if _, err := s.enquiries.Export(r.Context(), q.Filter, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("enquiries-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warn("export write interrupted", zap.Error(err))
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	e, err := s.enquiries.Get(r.Context(), s.mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.encode(w, r, http.StatusOK, enquiryResponse{Success: true, Enquiry: e})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var p services.UpdatePayload
	if err := s.decode(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}

	e, err := s.enquiries.Update(r.Context(), s.mux.Vars(r)["id"], &p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.encode(w, r, http.StatusOK, enquiryResponse{Success: true, Enquiry: e})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.enquiries.Delete(r.Context(), s.mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.encode(w, r, http.StatusOK, deleteResponse{Success: true, Message: "Enquiry deleted successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.encode(w, r, http.StatusOK, res)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := AdminFromContext(r.Context())
	if !ok {
		s.writeError(w, r, apperrors.Unauthorized("not authenticated"))
		return
	}
	s.encode(w, r, http.StatusOK, services.ToAdminView(user))
}

// parseListQuery reads search, status, type, skip and limit
func parseListQuery(r *http.Request) (services.ListQuery, error) {
	values := r.URL.Query()
	q := services.ListQuery{
		Filter: domain.Filter{
			Search: strings.TrimSpace(values.Get("search")),
			Status: strings.ToLower(strings.TrimSpace(values.Get("status"))),
			Type:   strings.TrimSpace(values.Get("type")),
		},
	}

	var invalid []string
	if st := q.Filter.Status; st != "" && st != domain.FilterAll {
		if _, ok := domain.ParseStatus(st); !ok {
			invalid = append(invalid, "status")
		}
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"skip", &q.Skip}, {"limit", &q.Limit}} {
		raw := values.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			invalid = append(invalid, p.name)
			continue
		}
		*p.dst = n
	}

	if len(invalid) > 0 {
		return q, apperrors.Validation("invalid query parameters: "+strings.Join(invalid, ", "), invalid...)
	}
	return q, nil
}

// decode reads a JSON body with goa's request decoder
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := goahttp.RequestDecoder(r).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.BadRequest("request body is empty", err)
		}
		return apperrors.BadRequest("request body is not valid JSON", err)
	}
	return nil
}

// encode writes v with goa's response encoder
func (s *Server) encode(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	enc := goahttp.ResponseEncoder(r.Context(), w)
	w.WriteHeader(status)
	if err := enc.Encode(v); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err), zap.String("request_id", requestID(r.Context())))
	}
}

// writeError maps err to its HTTP status and writes the error body. Causes
// of internal errors are logged, never returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal("internal server error", err)
	}
	status := apperrors.HTTPStatus(appErr.Code)
	id := requestID(r.Context())

	if status >= http.StatusInternalServerError {
		s.log.Error("request error",
			zap.String("code", string(appErr.Code)),
			zap.String("path", r.URL.Path),
			zap.String("request_id", id),
			zap.Error(err))
	}

	s.encode(w, r, status, errorResponse{
		Success: false,
		Error:   appErr.Message,
		Code:    string(appErr.Code),
		Fields:  appErr.Fields,
		ID:      id,
	})
}
