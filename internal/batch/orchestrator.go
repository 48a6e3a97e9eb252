package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/brightstock/imagery-backend/internal/intake"
	"github.com/brightstock/imagery-backend/internal/listings"
	"github.com/brightstock/imagery-backend/pkg/enums"
	pkgerrors "github.com/brightstock/imagery-backend/pkg/errors"
	"github.com/brightstock/imagery-backend/pkg/logger"
	"github.com/brightstock/imagery-backend/pkg/metrics"
)

const (
	commitLockScope = "batch-commit"
	commitLockTTL   = 5 * time.Minute
)

type marketplaceClient interface {
	Query(ctx context.Context, params listings.QueryParams) (listings.Page, error)
	Create(ctx context.Context, params listings.CreateParams) (*listings.Listing, error)
	Update(ctx context.Context, params listings.UpdateParams) (*listings.Listing, error)
}

type intakeFiles interface {
	Files(ctx context.Context, sessionID uuid.UUID) ([]intake.File, error)
}

type commitLocker interface {
	AcquireLock(ctx context.Context, scope, id string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope, id string) error
}

// Orchestrator owns batch sessions end to end: it folds intake events
// into session state, applies user edits, and runs the commit pass
// against the marketplace.
type Orchestrator struct {
	registry *Registry
	store    marketplaceClient
	intake   intakeFiles
	locks    commitLocker
	metrics  *metrics.BatchMetrics
	logger   *logger.Logger
	currency enums.Currency
	now      func() time.Time
}

// OrchestratorParams groups dependencies for the orchestrator.
type OrchestratorParams struct {
	Registry *Registry
	Store    marketplaceClient
	Intake   intakeFiles
	Locks    commitLocker
	Metrics  *metrics.BatchMetrics
	Logger   *logger.Logger
	Currency enums.Currency
}

// NewOrchestrator builds an orchestrator with the required dependencies.
func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.Registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session registry is required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "marketplace client is required")
	}
	if params.Intake == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intake service is required")
	}
	if params.Locks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commit locker is required")
	}
	if !params.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default currency is invalid")
	}
	return &Orchestrator{
		registry: params.Registry,
		store:    params.Store,
		intake:   params.Intake,
		locks:    params.Locks,
		metrics:  params.Metrics,
		logger:   params.Logger,
		currency: params.Currency,
		now:      time.Now,
	}, nil
}

// Open starts a session. Edit mode seeds the session with the first
// page of the provider's published listings.
func (o *Orchestrator) Open(ctx context.Context, providerID uuid.UUID, mode enums.PageMode) (Session, error) {
	if providerID == uuid.Nil {
		return Session{}, pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	if !mode.IsValid() {
		return Session{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid page mode")
	}

	session := o.registry.Open(providerID, mode)
	if mode != enums.PageModeEdit {
		return session, nil
	}

	page, err := o.store.Query(ctx, listings.QueryParams{States: []string{"published"}})
	if err != nil {
		o.registry.Delete(session.ID)
		return Session{}, err
	}
	return o.registry.Update(session.ID, func(s Session) Session {
		for _, remote := range page.Listings {
			s = s.Apply(ListingAdded{Listing: draftFromRemote(remote)}, o.now())
		}
		return s
	})
}

// Get returns the current session state.
func (o *Orchestrator) Get(sessionID uuid.UUID) (Session, error) {
	return o.registry.Get(sessionID)
}

// HandleIntakeEvent folds a pipeline notification into its session.
// Unknown sessions are ignored; the pipeline may settle uploads after
// a session expired.
func (o *Orchestrator) HandleIntakeEvent(ctx context.Context, evt intake.Event) {
	var sessionEvent Event
	switch evt.Kind {
	case intake.EventFileAdded:
		if evt.File == nil {
			return
		}
		sessionEvent = ListingAdded{Listing: DraftFromFile(*evt.File, o.currency)}
	case intake.EventFileRemoved:
		sessionEvent = ListingRemoved{ID: evt.FileID}
	case intake.EventThumbnailGenerated:
		sessionEvent = ThumbnailAttached{ID: evt.FileID, PreviewURL: evt.PreviewURL}
	case intake.EventError:
		if o.logger != nil {
			o.logger.Warn(o.logger.WithSessionID(ctx, evt.SessionID.String()), "intake pipeline error: "+evt.Reason)
		}
		return
	default:
		// Upload results live on the intake rows and are read at commit time.
		return
	}

	if _, err := o.registry.Update(evt.SessionID, func(s Session) Session {
		return s.Apply(sessionEvent, o.now())
	}); err != nil && o.logger != nil {
		o.logger.Warn(o.logger.WithSessionID(ctx, evt.SessionID.String()), "dropped intake event for unknown session")
	}
}

// Edit merges a user patch into one draft.
func (o *Orchestrator) Edit(sessionID, fileID uuid.UUID, patch ListingPatch) (Session, error) {
	return o.registry.Update(sessionID, func(s Session) Session {
		return s.Apply(ListingEdited{ID: fileID, Patch: patch}, o.now())
	})
}

// SetSelection replaces the selected id set.
func (o *Orchestrator) SetSelection(sessionID uuid.UUID, ids []uuid.UUID) (Session, error) {
	return o.registry.Update(sessionID, func(s Session) Session {
		return s.Apply(SelectionChanged{IDs: ids}, o.now())
	})
}

// AcceptAITerms marks the AI-content terms accepted for the session.
func (o *Orchestrator) AcceptAITerms(sessionID uuid.UUID) (Session, error) {
	return o.registry.Update(sessionID, func(s Session) Session {
		return s.Apply(AITermsAccepted{}, o.now())
	})
}

// Commit runs one commit pass over the selection. Gate failures abort
// without error; per-item marketplace failures land in the failed list
// and never abort the pass.
func (o *Orchestrator) Commit(ctx context.Context, sessionID uuid.UUID) (Session, error) {
	session, err := o.registry.Get(sessionID)
	if err != nil {
		return Session{}, err
	}
	if session.SaveState == enums.SaveStateInProgress {
		return Session{}, pkgerrors.New(pkgerrors.CodeStateConflict, "commit already in progress")
	}
	if len(session.Selected) == 0 {
		return Session{}, pkgerrors.New(pkgerrors.CodeValidation, "selection is empty")
	}

	acquired, err := o.locks.AcquireLock(ctx, commitLockScope, sessionID.String(), commitLockTTL)
	if err != nil {
		return Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire commit lock")
	}
	if !acquired {
		return Session{}, pkgerrors.New(pkgerrors.CodeStateConflict, "commit already in progress")
	}
	defer func() {
		if releaseErr := o.locks.ReleaseLock(ctx, commitLockScope, sessionID.String()); releaseErr != nil && o.logger != nil {
			o.logger.Warn(o.logger.WithSessionID(ctx, sessionID.String()), "release commit lock failed")
		}
	}()

	if invalid := validateSelected(session); len(invalid) > 0 {
		o.metrics.IncAbort()
		return o.registry.Update(sessionID, func(s Session) Session {
			return s.Apply(CommitAborted{Invalid: invalid}, o.now())
		})
	}
	if !aiTermsSatisfied(session) {
		o.metrics.IncAbort()
		return o.registry.Update(sessionID, func(s Session) Session {
			return s.Apply(CommitAborted{AITermsRequired: true}, o.now())
		})
	}

	session, err = o.registry.Update(sessionID, func(s Session) Session {
		return s.Apply(CommitStarted{}, o.now())
	})
	if err != nil {
		return Session{}, err
	}

	start := o.now()
	if session.Mode == enums.PageModeEdit {
		err = o.commitUpdates(ctx, sessionID, session)
	} else {
		err = o.commitCreates(ctx, sessionID, session)
	}
	if err != nil {
		return Session{}, err
	}

	final, err := o.registry.Get(sessionID)
	if err != nil {
		return Session{}, err
	}
	o.metrics.ObserveCommit(session.Mode.String(), o.now().Sub(start))
	o.metrics.AddSaved(session.Mode.String(), len(final.Successful))
	o.metrics.AddFailed(session.Mode.String(), len(final.Failed))
	return final, nil
}

// commitCreates publishes each successfully uploaded draft in list
// order. One create at a time keeps the burst off the marketplace.
func (o *Orchestrator) commitCreates(ctx context.Context, sessionID uuid.UUID, session Session) error {
	files, err := o.intake.Files(ctx, sessionID)
	if err != nil {
		return err
	}
	statusByID := make(map[uuid.UUID]intake.File, len(files))
	for _, file := range files {
		statusByID[file.ID] = file
	}

	for _, draft := range session.SelectedListings() {
		outcome := draft
		succeeded := false

		file, known := statusByID[draft.ID]
		switch {
		case !known:
			outcome.FailureReason = "intake file missing"
		case file.Status == enums.IntakeStatusFailed:
			outcome.FailureReason = file.FailureReason
			if outcome.FailureReason == "" {
				outcome.FailureReason = "upload failed"
			}
		case file.Status != enums.IntakeStatusUploaded:
			outcome.FailureReason = "upload not settled"
		default:
			created, createErr := o.store.Create(ctx, createParams(draft, file))
			if createErr != nil {
				outcome.FailureReason = createErr.Error()
				if o.logger != nil {
					o.logger.Error(o.logger.WithSessionID(ctx, sessionID.String()), "listing create failed", createErr)
				}
			} else {
				outcome.RemoteID = created.ID
				succeeded = true
			}
		}

		if _, err := o.applySettled(sessionID, outcome, succeeded); err != nil {
			return err
		}
	}
	return nil
}

// commitUpdates pushes every selected draft concurrently and waits for
// collective settlement. Only counts decide the terminal state, so the
// completion order does not matter.
func (o *Orchestrator) commitUpdates(ctx context.Context, sessionID uuid.UUID, session Session) error {
	selected := session.SelectedListings()

	type settled struct {
		listing   DraftListing
		succeeded bool
		err       error
	}
	results := make(chan settled, len(selected))

	var wg sync.WaitGroup
	for _, draft := range selected {
		wg.Add(1)
		go func(draft DraftListing) {
			defer wg.Done()
			_, updateErr := o.store.Update(ctx, updateParams(draft))
			outcome := draft
			if updateErr != nil {
				outcome.FailureReason = updateErr.Error()
			}
			results <- settled{listing: outcome, succeeded: updateErr == nil, err: updateErr}
		}(draft)
	}
	wg.Wait()
	close(results)

	var remoteErrs error
	for result := range results {
		remoteErrs = multierr.Append(remoteErrs, result.err)
		if _, err := o.applySettled(sessionID, result.listing, result.succeeded); err != nil {
			return err
		}
	}
	if remoteErrs != nil && o.logger != nil {
		o.logger.Error(o.logger.WithSessionID(ctx, sessionID.String()), "listing updates failed", remoteErrs)
	}
	return nil
}

func (o *Orchestrator) applySettled(sessionID uuid.UUID, listing DraftListing, succeeded bool) (Session, error) {
	return o.registry.Update(sessionID, func(s Session) Session {
		return s.Apply(ItemSettled{Listing: listing, Succeeded: succeeded}, o.now())
	})
}

func createParams(draft DraftListing, file intake.File) listings.CreateParams {
	categories := append([]string{listingCategory(draft).String()}, draft.Categories...)
	return listings.CreateParams{
		Title:       draft.Title,
		Description: draft.Description,
		Keywords:    draft.Keywords,
		Categories:  categories,
		Usage:       draft.Usage.String(),
		Releases:    draft.Releases.String(),
		PriceAmount: draft.Price,
		Currency:    draft.Currency,
		Dimensions:  draft.Dimensions.String(),
		MimeType:    draft.MimeType,
		StorageKey:  file.GCSKey,
		PreviewURL:  draft.PreviewURL,
		IsAI:        draft.IsAI,
	}
}

func updateParams(draft DraftListing) listings.UpdateParams {
	return listings.UpdateParams{
		ID:          draft.RemoteID,
		Title:       draft.Title,
		Description: draft.Description,
		Keywords:    draft.Keywords,
		Categories:  draft.Categories,
		Usage:       draft.Usage.String(),
		Releases:    draft.Releases.String(),
		PriceAmount: draft.Price,
		Currency:    draft.Currency,
	}
}

func draftFromRemote(remote listings.Listing) DraftListing {
	id := uuid.New()
	if parsed, err := uuid.Parse(remote.ID); err == nil {
		id = parsed
	}
	return DraftListing{
		ID:          id,
		Name:        remote.Title,
		Title:       remote.Title,
		Description: remote.Description,
		Keywords:    remote.Keywords,
		Categories:  remote.Categories,
		Usage:       enums.Usage(remote.Usage),
		Releases:    enums.Releases(remote.Releases),
		Price:       remote.Price.Major(),
		Currency:    remote.Price.Currency,
		Dimensions:  enums.ImageDimensionsUnavailable,
		IsAI:        remote.IsAI,
		PreviewURL:  remote.PreviewURL,
		RemoteID:    remote.ID,
	}
}
