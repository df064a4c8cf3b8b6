package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"enquirydesk/internal/domain"
	"enquirydesk/internal/metrics"
	"enquirydesk/internal/store"
	apperrors "enquirydesk/pkg/errors"
)

// ListWarning is returned with an empty list when the store is unavailable
const ListWarning = "Failed to fetch some enquiries"

// SubmitPayload is the body accepted by the three intake endpoints. Fields
// that do not belong to the submitted kind are ignored.
type SubmitPayload struct {
	Type        string `json:"type"`
	PackageType string `json:"packageType"`
	AgencyName  string `json:"agencyName"`
	ContactName string `json:"contactName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	// Notes is accepted as an alias of Message.
	Notes string `json:"notes"`

	WebsiteURL string `json:"websiteUrl"`

	Locations       string `json:"locations"`
	AreasServed     string `json:"areasServed"`
	DesiredDomain   string `json:"desiredDomain"`
	ExistingWebsite string `json:"existingWebsite"`

	ThemeColor string `json:"themeColor"`
	Font       string `json:"font"`
	Price      string `json:"price"`

	Requirements string `json:"requirements"`
	BudgetRange  string `json:"budgetRange"`
	Timeline     string `json:"timeline"`
}

func (p *SubmitPayload) normalize() {
	for _, f := range []*string{
		&p.Type, &p.PackageType, &p.AgencyName, &p.ContactName, &p.Email, &p.Phone,
		&p.Message, &p.Notes, &p.WebsiteURL, &p.Locations, &p.AreasServed,
		&p.DesiredDomain, &p.ExistingWebsite, &p.ThemeColor, &p.Font, &p.Price,
		&p.Requirements, &p.BudgetRange, &p.Timeline,
	} {
		*f = strings.TrimSpace(*f)
	}
	p.PackageType = strings.ToLower(p.PackageType)
	if p.Message == "" {
		p.Message = p.Notes
	}
}

// UpdatePayload is a partial update. Nil fields are left unchanged. The
// raw fields exist only so that attempts to write them can be rejected.
type UpdatePayload struct {
	Status *string `json:"status"`

	AgencyName  *string `json:"agencyName"`
	ContactName *string `json:"contactName"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Message     *string `json:"message"`

	WebsiteURL      *string `json:"websiteUrl"`
	Locations       *string `json:"locations"`
	AreasServed     *string `json:"areasServed"`
	DesiredDomain   *string `json:"desiredDomain"`
	ExistingWebsite *string `json:"existingWebsite"`
	ThemeColor      *string `json:"themeColor"`
	Font            *string `json:"font"`
	Price           *string `json:"price"`
	Requirements    *string `json:"requirements"`
	BudgetRange     *string `json:"budgetRange"`
	Timeline        *string `json:"timeline"`

	ID          json.RawMessage `json:"id"`
	Type        json.RawMessage `json:"type"`
	PackageType json.RawMessage `json:"packageType"`
	CreatedAt   json.RawMessage `json:"createdAt"`
	UpdatedAt   json.RawMessage `json:"updatedAt"`
}

func (p *UpdatePayload) editable() []**string {
	return []**string{
		&p.Status, &p.AgencyName, &p.ContactName, &p.Email, &p.Phone, &p.Message,
		&p.WebsiteURL, &p.Locations, &p.AreasServed, &p.DesiredDomain, &p.ExistingWebsite,
		&p.ThemeColor, &p.Font, &p.Price, &p.Requirements, &p.BudgetRange, &p.Timeline,
	}
}

func (p *UpdatePayload) normalize() {
	for _, f := range p.editable() {
		*f = trimPtr(*f)
	}
	if p.Status != nil {
		status := strings.ToLower(*p.Status)
		p.Status = &status
	}
}

func (p *UpdatePayload) empty() bool {
	for _, f := range p.editable() {
		if *f != nil {
			return false
		}
	}
	return true
}

// apply copies supplied fields onto e. validateUpdate has already rejected
// fields that do not apply to e's kind.
func (p *UpdatePayload) apply(e *domain.Enquiry) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	if p.Status != nil {
		e.Status = domain.Status(*p.Status)
	}
	set(&e.AgencyName, p.AgencyName)
	set(&e.ContactName, p.ContactName)
	set(&e.Email, p.Email)
	set(&e.Phone, p.Phone)
	set(&e.Message, p.Message)

	if p.WebsiteURL != nil {
		if e.AuditDetails == nil {
			e.AuditDetails = &domain.AuditDetails{}
		}
		e.WebsiteURL = *p.WebsiteURL
	}
	if p.Locations != nil || p.AreasServed != nil || p.DesiredDomain != nil || p.ExistingWebsite != nil {
		if e.ProjectDetails == nil {
			e.ProjectDetails = &domain.ProjectDetails{}
		}
		set(&e.Locations, p.Locations)
		set(&e.AreasServed, p.AreasServed)
		set(&e.DesiredDomain, p.DesiredDomain)
		set(&e.ExistingWebsite, p.ExistingWebsite)
	}
	if p.ThemeColor != nil || p.Font != nil || p.Price != nil {
		if e.TemplateDetails == nil {
			e.TemplateDetails = &domain.TemplateDetails{}
		}
		set(&e.ThemeColor, p.ThemeColor)
		set(&e.Font, p.Font)
		set(&e.Price, p.Price)
	}
	if p.Requirements != nil || p.BudgetRange != nil || p.Timeline != nil {
		if e.QuoteDetails == nil {
			e.QuoteDetails = &domain.QuoteDetails{}
		}
		set(&e.Requirements, p.Requirements)
		set(&e.BudgetRange, p.BudgetRange)
		set(&e.Timeline, p.Timeline)
	}
}

// ListQuery selects a page of the admin list
type ListQuery struct {
	Filter domain.Filter
	Skip   int
	// Limit <= 0 returns every match.
	Limit int
}

// ListResult is one page of the admin list plus dashboard counters
type ListResult struct {
	Enquiries []*domain.Enquiry
	// Total counts matches before pagination.
	Total   int
	Stats   domain.Stats
	Warning string
}

// EnquiryService owns the enquiry lifecycle: intake, triage and deletion
type EnquiryService struct {
	kv    store.KV
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// Option configures an EnquiryService
type Option func(*EnquiryService)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *EnquiryService) { s.now = now }
}

// WithIDGenerator overrides how enquiry ids are minted
func WithIDGenerator(newID func() string) Option {
	return func(s *EnquiryService) { s.newID = newID }
}

// NewEnquiryService creates a new enquiry service
func NewEnquiryService(kv store.KV, log *zap.Logger, opts ...Option) *EnquiryService {
	s := &EnquiryService{
		kv:    kv,
		log:   log.Named("enquiry"),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and stores a new enquiry of the given kind
func (s *EnquiryService) Submit(ctx context.Context, kind domain.Kind, p *SubmitPayload) (*domain.Enquiry, error) {
	if _, ok := requiredFields[kind]; !ok {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, fmt.Sprintf("unknown enquiry kind %q", kind))
	}
	if p == nil {
		p = &SubmitPayload{}
	}
	p.normalize()

	if err := validateSubmit(kind, p); err != nil {
		s.log.Info("submission rejected", zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}

	e := s.build(kind, p)
	if err := s.save(ctx, OpCreate, e); err != nil {
		return nil, err
	}

	s.log.Info("new enquiry received",
		zap.String("id", e.ID),
		zap.String("kind", string(kind)),
		zap.String("type", e.Type))
	metrics.RecordEnquiryCreated(string(kind))
	return e, nil
}

func (s *EnquiryService) build(kind domain.Kind, p *SubmitPayload) *domain.Enquiry {
	e := &domain.Enquiry{
		Record: domain.Record{
			ID:          s.newID(),
			Type:        p.Type,
			Status:      domain.StatusNew,
			AgencyName:  p.AgencyName,
			ContactName: p.ContactName,
			Email:       p.Email,
			Phone:       p.Phone,
			Message:     p.Message,
			CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
		},
	}

	switch kind {
	case domain.KindGeneric:
		e.AuditDetails = &domain.AuditDetails{WebsiteURL: p.WebsiteURL}
	case domain.KindPackage:
		e.PackageType = domain.PackageType(p.PackageType)
		e.ProjectDetails = projectDetails(p)
		e.TemplateDetails = &domain.TemplateDetails{
			ThemeColor: p.ThemeColor,
			Font:       p.Font,
			Price:      p.Price,
		}
	case domain.KindCustom:
		e.PackageType = domain.PackageCustomQuote
		e.ProjectDetails = projectDetails(p)
		e.QuoteDetails = &domain.QuoteDetails{
			Requirements: p.Requirements,
			BudgetRange:  p.BudgetRange,
			Timeline:     p.Timeline,
		}
	}
	return e
}

func projectDetails(p *SubmitPayload) *domain.ProjectDetails {
	return &domain.ProjectDetails{
		Locations:       p.Locations,
		AreasServed:     p.AreasServed,
		DesiredDomain:   p.DesiredDomain,
		ExistingWebsite: p.ExistingWebsite,
	}
}

// Get returns one enquiry by id
func (s *EnquiryService) Get(ctx context.Context, id string) (*domain.Enquiry, error) {
	return s.load(ctx, OpGet, id)
}

// List returns the filtered, newest-first enquiries. A store failure yields
// an empty result with a warning rather than an error.
func (s *EnquiryService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	all, skipped, err := s.loadAll(ctx)
	if err != nil {
		if PolicyFor(OpList) == Degrade {
			s.log.Warn("listing degraded to empty after store failure", zap.Error(err))
			metrics.RecordListDegraded()
			return &ListResult{
				Enquiries: []*domain.Enquiry{},
				Warning:   ListWarning,
			}, nil
		}
		return nil, storeFailure(OpList, err)
	}

	filtered := q.Filter.Apply(all)
	result := &ListResult{
		Enquiries: domain.Paginate(filtered, q.Skip, q.Limit),
		Total:     len(filtered),
		Stats:     domain.Summarize(all),
	}
	if skipped > 0 {
		result.Warning = fmt.Sprintf("%d stored enquiries could not be read", skipped)
	}

	s.log.Debug("list served",
		zap.Int("total", result.Total),
		zap.Int("returned", len(result.Enquiries)))
	return result, nil
}

// Update applies a partial update and stamps updatedAt
func (s *EnquiryService) Update(ctx context.Context, id string, p *UpdatePayload) (*domain.Enquiry, error) {
	e, err := s.load(ctx, OpUpdate, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &UpdatePayload{}
	}
	p.normalize()

	if err := validateUpdate(e, p); err != nil {
		s.log.Info("update rejected", zap.String("id", e.ID), zap.Error(err))
		return nil, err
	}

	previous := e.Status
	p.apply(e)
	e.Touch(s.now().UTC().Truncate(time.Millisecond))

	if err := s.save(ctx, OpUpdate, e); err != nil {
		return nil, err
	}

	if p.Status != nil {
		metrics.RecordStatusUpdate(string(e.Status))
	}
	s.log.Info("enquiry updated",
		zap.String("id", e.ID),
		zap.String("from", string(previous)),
		zap.String("status", string(e.Status)))
	return e, nil
}

// Delete permanently removes an enquiry
func (s *EnquiryService) Delete(ctx context.Context, id string) error {
	e, err := s.load(ctx, OpDelete, id)
	if err != nil {
		return err
	}

	if err := s.kv.Del(ctx, domain.Key(e.ID)); err != nil {
		s.log.Error("delete failed", zap.String("id", e.ID), zap.Error(err))
		return storeFailure(OpDelete, err)
	}

	s.log.Info("enquiry deleted", zap.String("id", e.ID))
	metrics.RecordEnquiryDeleted()
	return nil
}

func (s *EnquiryService) load(ctx context.Context, op Operation, id string) (*domain.Enquiry, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("enquiry not found")
	}

	data, err := s.kv.Get(ctx, domain.Key(id))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Error("store read failed", zap.String("op", string(op)), zap.String("id", id), zap.Error(err))
		}
		return nil, storeFailure(op, err)
	}

	var e domain.Enquiry
	if err := json.Unmarshal(data, &e); err != nil {
		s.log.Error("stored enquiry is not valid JSON", zap.String("id", id), zap.Error(err))
		return nil, apperrors.Internal("stored enquiry could not be read", err)
	}
	return &e, nil
}

// loadAll returns every decodable enquiry, newest first, and the number of
// blobs that had to be skipped.
func (s *EnquiryService) loadAll(ctx context.Context) ([]*domain.Enquiry, int, error) {
	blobs, err := s.kv.GetByPrefix(ctx, domain.KeyPrefix)
	if err != nil {
		return nil, 0, err
	}

	list := make([]*domain.Enquiry, 0, len(blobs))
	skipped := 0
	for _, b := range blobs {
		var e domain.Enquiry
		if err := json.Unmarshal(b, &e); err != nil {
			skipped++
			s.log.Warn("skipping undecodable enquiry", zap.Error(err))
			continue
		}
		list = append(list, &e)
	}
	domain.SortNewestFirst(list)
	return list, skipped, nil
}

func (s *EnquiryService) save(ctx context.Context, op Operation, e *domain.Enquiry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return apperrors.Internal("failed to encode enquiry", err)
	}
	if err := s.kv.Set(ctx, domain.Key(e.ID), data); err != nil {
		s.log.Error("store write failed", zap.String("op", string(op)), zap.String("id", e.ID), zap.Error(err))
		return storeFailure(op, err)
	}
	return nil
}
