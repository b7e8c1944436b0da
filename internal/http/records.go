package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"suryasakshi/internal/attachments"
	"suryasakshi/internal/core"
	"suryasakshi/internal/export"
	"suryasakshi/internal/ledger"
	"suryasakshi/internal/log"
	"suryasakshi/internal/services"
)

// resource is the category-independent view of one LedgerService used by
// the record handlers.
type resource interface {
	list(ctx context.Context, p core.Period, term string) (recordList, error)
	exportRows(ctx context.Context, p core.Period, term string) ([]map[string]any, error)
	get(ctx context.Context, id int64) (any, error)
	create(ctx context.Context, user string, body []byte) (any, int64, error)
	update(ctx context.Context, user string, id int64, body []byte) (any, error)
	remove(ctx context.Context, user string, id int64) error
	attach(ctx context.Context, user string, id int64, name string, r io.Reader) (any, error)
}

type recordList struct {
	Category core.Category `json:"category"`
	Period   core.Period   `json:"period"`
	Totals   core.Totals   `json:"totals"`
	Records  any           `json:"records"`
}

type recordResource[T core.Record, P core.Mutable[T]] struct {
	svc *services.LedgerService[T, P]
}

func newResource[T core.Record, P core.Mutable[T]](svc *services.LedgerService[T, P]) resource {
	return recordResource[T, P]{svc: svc}
}

func (rr recordResource[T, P]) filtered(ctx context.Context, p core.Period, term string) ([]T, error) {
	all, err := rr.svc.List(ctx)
	if err != nil {
		return nil, err
	}
	return core.Search(core.FilterPeriod(all, p), term), nil
}

func (rr recordResource[T, P]) list(ctx context.Context, p core.Period, term string) (recordList, error) {
	recs, err := rr.filtered(ctx, p, term)
	if err != nil {
		return recordList{}, err
	}
	cur, _ := core.ResolvePeriods(p)
	return recordList{
		Category: rr.svc.Category(),
		Period:   p,
		Totals:   core.ComputeTotals(recs, cur.Month, cur.Year),
		Records:  recs,
	}, nil
}

func (rr recordResource[T, P]) exportRows(ctx context.Context, p core.Period, term string) ([]map[string]any, error) {
	recs, err := rr.filtered(ctx, p, term)
	if err != nil {
		return nil, err
	}
	return export.Rows(recs)
}

func (rr recordResource[T, P]) get(ctx context.Context, id int64) (any, error) {
	return rr.svc.Get(ctx, id)
}

func (rr recordResource[T, P]) create(ctx context.Context, user string, body []byte) (any, int64, error) {
	rec, err := decodeRecord[T](body)
	if err != nil {
		return nil, 0, err
	}
	stored, err := rr.svc.Add(ctx, user, rec)
	if err != nil {
		return nil, 0, err
	}
	return stored, stored.RecordID(), nil
}

// update replaces record id. The identifier in the path wins over any in the
// body.
func (rr recordResource[T, P]) update(ctx context.Context, user string, id int64, body []byte) (any, error) {
	rec, err := decodeRecord[T](body)
	if err != nil {
		return nil, err
	}
	P(&rec).SetRecordID(id)
	return rr.svc.Update(ctx, user, rec)
}

func (rr recordResource[T, P]) remove(ctx context.Context, user string, id int64) error {
	return rr.svc.Delete(ctx, user, id)
}

func (rr recordResource[T, P]) attach(ctx context.Context, user string, id int64, name string, r io.Reader) (any, error) {
	return rr.svc.AttachFile(ctx, user, id, name, r)
}

// resourceFor resolves the {category} segment, writing 404 when unknown.
func (s *Server) resourceFor(w http.ResponseWriter, r *http.Request) (core.Category, resource, bool) {
	c, ok := pathCategory(r)
	if !ok {
		NotFoundError("Unknown category").Write(w)
		return "", nil, false
	}
	return c, s.resources[c], true
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	_, res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}
	p := s.state.period(currentUser(r.Context()), ParsePeriodParams(r.URL.Query()))

	out, err := res.list(r.Context(), p, searchTerm(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(out).Write(w)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	_, res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		BadRequestError("Invalid record id").Write(w)
		return
	}

	rec, err := res.get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(rec).Write(w)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	c, res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	user := currentUser(r.Context())
	rec, id, err := res.create(r.Context(), user, body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordMutation(r.Context(), log.OpCreate, user, c.String(), id)
	NewResponse().Status(http.StatusCreated).JSON(rec).Write(w)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	c, res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		BadRequestError("Invalid record id").Write(w)
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	user := currentUser(r.Context())
	rec, err := res.update(r.Context(), user, id, body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordMutation(r.Context(), log.OpUpdate, user, c.String(), id)
	NewResponse().JSON(rec).Write(w)
}

// handleDeleteRecord answers 204 whether or not the record existed.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	c, res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		BadRequestError("Invalid record id").Write(w)
		return
	}

	user := currentUser(r.Context())
	if err := res.remove(r.Context(), user, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordMutation(r.Context(), log.OpDelete, user, c.String(), id)
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadAttachment stores the multipart "file" part as the record's
// invoice or bill.
func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	c, res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		BadRequestError("Invalid record id").Write(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "File is too large").Write(w)
			return
		}
		BadRequestError("A file field is required").Write(w)
		return
	}
	defer file.Close()
	if header.Size > s.maxUpload {
		ErrorResponse(http.StatusRequestEntityTooLarge, "File is too large").Write(w)
		return
	}

	user := currentUser(r.Context())
	rec, err := res.attach(r.Context(), user, id, header.Filename, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordMutation(r.Context(), log.OpUpload, user, c.String(), id)
	NewResponse().JSON(rec).Write(w)
}

// handleExport streams the period- and search-filtered records as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	c, res, ok := s.resourceFor(w, r)
	if !ok {
		return
	}
	p := s.state.period(currentUser(r.Context()), ParsePeriodParams(r.URL.Query()))

	rows, err := res.exportRows(r.Context(), p, searchTerm(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if len(rows) == 0 {
		NotFoundError(export.NoDataMessage).Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(c, p)+`"`)
	if err := export.WriteCSV(w, export.Columns(c), rows); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentExport).
			ErrorContext(r.Context(), "CSV write failed", log.FieldCategory, c, log.FieldError, err)
		return
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentExport).
		InfoContext(r.Context(), "Records exported",
			log.FieldCategory, c, log.FieldYear, p.Year, log.FieldMonth, p.MonthName(), "rows", len(rows))
}

// handleAttachment serves a stored attachment to authenticated users.
func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	rc, err := s.files.Open(r.Context(), r.URL.Path)
	if errors.Is(err, ledger.ErrNotFound) || errors.Is(err, attachments.ErrInvalidURL) {
		NotFoundError("Attachment not found").Write(w)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := io.Copy(w, rc); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentAttachments).
			WarnContext(r.Context(), "Attachment copy interrupted", log.FieldError, err)
	}
}

// writeServiceError maps domain errors to status codes. Unexpected store
// errors are surfaced to the client with a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadBody):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, services.ErrInvalid):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, ledger.ErrNotFound):
		NotFoundError("Record not found").Write(w)
	case errors.Is(err, ledger.ErrMissingID):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, services.ErrNoAttachments):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, attachments.ErrNotPDF):
		ErrorResponse(http.StatusUnsupportedMediaType, err.Error()).Write(w)
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Request failed", err,
			log.ComponentLedger, r.Method+" "+r.Pattern,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()))
		InternalServerError(err.Error()).Write(w)
	}
}
