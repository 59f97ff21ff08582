package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pkordes/tripboard/backend/internal/blob"
	"github.com/pkordes/tripboard/backend/internal/domain"
)

// entryBlobs is the part of blob.Store the entry path needs; the full store
// stays behind the gateway.
type entryBlobs interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// WithBlobs hands the service direct blob access for eager image uploads.
func (s *TripService) WithBlobs(blobs entryBlobs) *TripService {
	s.blobs = blobs
	return s
}

// AddEntry adds an entry to a station. Entries without an id get a fresh
// one; data-URL images are compressed and uploaded before the entry lands in
// the trip. Returns domain.ErrNotFound for an unknown station (except the
// pre-trip station, which is created on demand).
func (s *TripService) AddEntry(ctx context.Context, dayID string, e domain.Entry) (domain.Entry, error) {
	ensureEntryID(e)
	s.uploadInlineImage(ctx, e)

	err := s.mutate(func(t *domain.Trip) error {
		if !t.AddEntry(dayID, e) {
			return fmt.Errorf("%w: day %q", domain.ErrNotFound, dayID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.TripService.AddEntry: %w", err)
	}
	return e, nil
}

// UpdateEntry replaces an entry in place, keyed by its id.
// Returns domain.ErrNotFound if no entry with that id exists in the station.
func (s *TripService) UpdateEntry(ctx context.Context, dayID string, e domain.Entry) (domain.Entry, error) {
	if e.EntryID() == "" {
		return nil, fmt.Errorf("service.TripService.UpdateEntry: %w: entry id is required", domain.ErrValidation)
	}
	s.uploadInlineImage(ctx, e)

	err := s.mutate(func(t *domain.Trip) error {
		if !t.UpdateEntry(dayID, e) {
			return fmt.Errorf("%w: entry %q in day %q", domain.ErrNotFound, e.EntryID(), dayID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.TripService.UpdateEntry: %w", err)
	}
	return e, nil
}

// DeleteEntry removes an entry and best-effort deletes its referenced blobs.
func (s *TripService) DeleteEntry(ctx context.Context, dayID, entryID string) error {
	var removed domain.Entry
	err := s.mutate(func(t *domain.Trip) error {
		e, ok := t.DeleteEntry(dayID, entryID)
		if !ok {
			return fmt.Errorf("%w: entry %q in day %q", domain.ErrNotFound, entryID, dayID)
		}
		removed = e
		return nil
	})
	if err != nil {
		return fmt.Errorf("service.TripService.DeleteEntry: %w", err)
	}

	s.gw.DeleteBlobs(ctx, removed)
	return nil
}

// MoveEntry reorders entries within a station.
func (s *TripService) MoveEntry(dayID string, from, to int) error {
	err := s.mutate(func(t *domain.Trip) error {
		if !t.MoveEntry(dayID, from, to) {
			return fmt.Errorf("%w: day %q", domain.ErrNotFound, dayID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("service.TripService.MoveEntry: %w", err)
	}
	return nil
}

// ToggleReaction flips the caller's like/dislike on a content entry and
// returns the new counters. Returns domain.ErrValidation for separator
// entries, which carry no reactions.
func (s *TripService) ToggleReaction(dayID, entryID string, kind domain.ReactionKind) (domain.Reactions, error) {
	if kind != domain.ReactionLike && kind != domain.ReactionDislike {
		return domain.Reactions{}, fmt.Errorf("service.TripService.ToggleReaction: %w: unknown reaction %q", domain.ErrValidation, kind)
	}

	var reactions domain.Reactions
	err := s.mutate(func(t *domain.Trip) error {
		e := t.FindEntry(dayID, entryID)
		if e == nil {
			return fmt.Errorf("%w: entry %q in day %q", domain.ErrNotFound, entryID, dayID)
		}
		if !t.ToggleEntryReaction(dayID, entryID, kind) {
			return fmt.Errorf("%w: entry %q has no reactions", domain.ErrValidation, entryID)
		}
		r, _ := domain.EntryReactions(e)
		reactions = *r
		return nil
	})
	if err != nil {
		return domain.Reactions{}, fmt.Errorf("service.TripService.ToggleReaction: %w", err)
	}
	return reactions, nil
}

// UploadImage compresses a data-URL image and stores it, returning the
// public URL. Used by the dedicated upload endpoint.
func (s *TripService) UploadImage(ctx context.Context, dataURL, name string) (string, error) {
	data, _, err := blob.DecodeDataURL(dataURL)
	if err != nil {
		return "", fmt.Errorf("service.TripService.UploadImage: %w", err)
	}
	jpg, err := blob.CompressImage(data)
	if err != nil {
		return "", fmt.Errorf("service.TripService.UploadImage: %w", err)
	}

	if name == "" {
		name = "image"
	}
	url, err := s.blobs.Upload(ctx, blob.ImageKey(name+".jpg"), jpg, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("service.TripService.UploadImage: %w", err)
	}
	return url, nil
}

// uploadInlineImage replaces a data-URL image on a content entry with a blob
// URL. External http(s) image URLs pass through untouched. Failures keep the
// inline image: the size gateway deals with oversized documents later.
func (s *TripService) uploadInlineImage(ctx context.Context, e domain.Entry) {
	imageURL := entryImageURL(e)
	if imageURL == nil || !strings.HasPrefix(*imageURL, "data:") {
		return
	}

	url, err := s.UploadImage(ctx, *imageURL, e.EntryID())
	if err != nil {
		if !errors.Is(err, domain.ErrStorageUnavailable) {
			s.log.Warn("inline image upload failed, keeping data url", "entry_id", e.EntryID(), "error", err)
		}
		return
	}
	*imageURL = url
}

// entryImageURL returns a pointer to the entry's imageUrl field, nil for
// variants without one.
func entryImageURL(e domain.Entry) *string {
	switch v := e.(type) {
	case *domain.InfoEntry:
		return &v.ImageURL
	case *domain.NoteEntry:
		return &v.ImageURL
	default:
		return nil
	}
}

func ensureEntryID(e domain.Entry) {
	switch v := e.(type) {
	case *domain.InfoEntry:
		if v.ID == "" {
			v.ID = domain.NewEntryID()
		}
	case *domain.NoteEntry:
		if v.ID == "" {
			v.ID = domain.NewEntryID()
		}
	case *domain.DaySeparatorEntry:
		if v.ID == "" {
			v.ID = domain.NewEntryID()
		}
	case *domain.SeparatorEntry:
		if v.ID == "" {
			v.ID = domain.NewEntryID()
		}
	}
}
