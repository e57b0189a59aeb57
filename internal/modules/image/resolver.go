// Package image reconciles the photo set of an apartment or establishment
// against a requested "keep these, add those" change.
package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"staybook/internal/domain"
	"staybook/internal/pkg/apperr"
	"staybook/internal/pkg/logger"
	"staybook/internal/pkg/storage"
)

// NewImage is an upload that has not been stored yet.
type NewImage struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type imageRepo interface {
	Create(ctx context.Context, img *domain.Image) error
	Delete(ctx context.Context, id int64) error
}

// PartialError reports how far a batch got before it stopped. Nothing that
// was already processed is rolled back.
type PartialError struct {
	Removed []int64
	Added   []domain.Image
	// Failed names the image the batch stopped on: an id for removals, a file
	// name for uploads.
	Failed string
	Err    error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("image batch stopped at %s after %d removals and %d uploads: %v",
		e.Failed, len(e.Removed), len(e.Added), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

type Resolver struct {
	store  storage.Store
	images imageRepo
	prefix string
	log    *slog.Logger
	now    func() time.Time
}

// NewResolver stores blobs under prefix ("apartments", "establishments").
func NewResolver(store storage.Store, images imageRepo, prefix string, log *slog.Logger) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{
		store:  store,
		images: images,
		prefix: prefix,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Resolve removes every current image not listed in keep, then uploads each
// of add and persists it after attach has set its owner. It returns the
// images it created.
//
// keep may only name images from current. Removing an image that is already
// gone counts as success. The first failure stops the batch with a
// *PartialError wrapped in an external-service error.
func (r *Resolver) Resolve(ctx context.Context, current []domain.Image, keep []int64, add []NewImage, attach func(*domain.Image)) ([]domain.Image, error) {
	for _, id := range keep {
		if !slices.ContainsFunc(current, func(img domain.Image) bool { return img.ID == id }) {
			return nil, apperr.Validation("UNKNOWN_IMAGE", fmt.Sprintf("image %d is not attached here", id), map[string]any{"id": id})
		}
	}

	log := logger.FromContext(ctx, r.log)
	partial := &PartialError{}
	for _, img := range current {
		if slices.Contains(keep, img.ID) {
			continue
		}
		if err := r.remove(ctx, img); err != nil {
			partial.Failed, partial.Err = fmt.Sprintf("image %d", img.ID), err
			return partial.Added, incomplete(partial)
		}
		partial.Removed = append(partial.Removed, img.ID)
	}

	for _, in := range add {
		img, err := r.upload(ctx, in, attach)
		if err != nil {
			partial.Failed, partial.Err = in.Name, err
			return partial.Added, incomplete(partial)
		}
		partial.Added = append(partial.Added, *img)
	}

	if len(partial.Removed) > 0 || len(partial.Added) > 0 {
		log.Info("images resolved", "prefix", r.prefix, "removed", len(partial.Removed), "added", len(partial.Added))
	}
	if partial.Added == nil {
		partial.Added = []domain.Image{}
	}
	return partial.Added, nil
}

func (r *Resolver) remove(ctx context.Context, img domain.Image) error {
	if err := r.store.Delete(ctx, img.ObjectKey); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if err := r.images.Delete(ctx, img.ID); err != nil {
		return fmt.Errorf("delete image row: %w", err)
	}
	return nil
}

func (r *Resolver) upload(ctx context.Context, in NewImage, attach func(*domain.Image)) (*domain.Image, error) {
	now := r.now()
	key := storage.NewObjectKey(r.prefix, in.Name, in.ContentType, now)
	url, err := r.store.Put(ctx, key, in.Body, in.Size, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload blob: %w", err)
	}

	img := &domain.Image{ObjectKey: key, URL: url, ContentType: in.ContentType, CreatedAt: now}
	if attach != nil {
		attach(img)
	}
	if err := r.images.Create(ctx, img); err != nil {
		if delErr := r.store.Delete(ctx, key); delErr != nil {
			logger.FromContext(ctx, r.log).Warn("orphaned blob", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("create image row: %w", err)
	}
	return img, nil
}

func incomplete(p *PartialError) error {
	return &apperr.Error{
		Kind:    apperr.KindExternal,
		Code:    "IMAGE_BATCH_INCOMPLETE",
		Message: "image storage is unavailable; the photo set was only partly updated",
		Err:     p,
	}
}
