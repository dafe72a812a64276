package sync

import (
	"context"
	"fmt"
	neturl "net/url"
	"path"
	"reflect"
	"strings"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/jsonutil"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

type videoInput struct {
	idx         int
	uid         string
	url         string
	metadata    map[string]any
	metadataSet bool
	archived    bool
}

// SyncVideos reconciles a batch of video records. Records without a
// video_uid take the filename component of their URL as UID.
func (e *Engine) SyncVideos(ctx context.Context, records []VideoRecord) (*Summary, error) {
	sum := newSummary(KindVideos, len(records))
	batch := &BatchErrors{}

	inputs := make([]videoInput, 0, len(records))
	seenUID := make(map[string]int)
	seenURL := make(map[string]int)
	for i, rec := range records {
		uid := strings.TrimSpace(rec.VideoUID)
		url := strings.TrimSpace(rec.URL)
		if url == "" {
			batch.add(structuralErr(i, uid, "url is required"))
			continue
		}
		derived, err := videoUIDFromURL(url)
		if err != nil {
			batch.add(structuralErr(i, uid, "%v", err))
			continue
		}
		if uid == "" {
			uid = derived
		}
		if len(uid) > models.MaxVideoUIDLength {
			batch.add(structuralErr(i, uid, "video_uid exceeds %d characters", models.MaxVideoUIDLength))
			continue
		}

		in := videoInput{idx: i, uid: uid, url: url, archived: archivedFlag(rec.IsActive)}
		if !jsonutil.IsNull(rec.Metadata) {
			m, ok := jsonutil.AsObject(rec.Metadata)
			if !ok {
				batch.add(structuralErr(i, uid, "metadata must be a JSON object"))
				continue
			}
			if len(m) == 0 {
				batch.add(structuralErr(i, uid, "metadata must not be an empty object"))
				continue
			}
			in.metadata = m
			in.metadataSet = true
		}

		if prev, ok := seenUID[uid]; ok {
			batch.add(structuralErr(i, uid, "duplicate video_uid in batch (also at record %d)", prev))
			continue
		}
		if prev, ok := seenURL[url]; ok {
			batch.add(structuralErr(i, uid, "duplicate url in batch (also at record %d)", prev))
			continue
		}
		seenUID[uid] = i
		seenURL[url] = i
		inputs = append(inputs, in)
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	repos := e.repos(e.store)
	var creates, updates []*models.Video
	for _, in := range inputs {
		existing, err := repos.Videos.GetByUID(ctx, in.uid)
		if err != nil {
			return nil, err
		}

		if existing == nil {
			byURL, err := repos.Videos.GetByURL(ctx, in.url)
			if err != nil {
				return nil, err
			}
			if byURL != nil {
				batch.add(conflictErr(in.idx, in.uid, "url already belongs to video %q", byURL.VideoUID))
				continue
			}
			creates = append(creates, &models.Video{
				VideoUID:   in.uid,
				URL:        in.url,
				Metadata:   in.metadata,
				IsArchived: in.archived,
			})
			continue
		}

		if existing.URL != in.url {
			byURL, err := repos.Videos.GetByURL(ctx, in.url)
			if err != nil {
				return nil, err
			}
			if byURL != nil && byURL.ID != existing.ID {
				batch.add(conflictErr(in.idx, in.uid, "url already belongs to video %q", byURL.VideoUID))
				continue
			}
		}

		updated := *existing
		updated.URL = in.url
		updated.IsArchived = in.archived
		if in.metadataSet {
			updated.Metadata = in.metadata
		}
		if updated.URL == existing.URL && updated.IsArchived == existing.IsArchived &&
			reflect.DeepEqual(updated.Metadata, existing.Metadata) {
			sum.Skipped++
			continue
		}
		updates = append(updates, &updated)
	}
	if batch.Len() > 0 {
		return sum.reject(batch)
	}

	err := e.store.WithTx(ctx, func(q database.Querier) error {
		r := e.repos(q)
		for _, v := range creates {
			if err := r.Videos.Create(ctx, v); err != nil {
				return err
			}
		}
		for _, v := range updates {
			if err := r.Videos.Update(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply video batch: %w", err)
	}

	sum.Created = len(creates)
	sum.Updated = len(updates)
	e.logSummary(sum)
	return sum, nil
}

// videoUIDFromURL extracts the filename component of a video URL. The URL
// must end in a filename with an extension.
func videoUIDFromURL(raw string) (string, error) {
	u, err := neturl.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q", raw)
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return "", fmt.Errorf("url %q has no filename component", raw)
	}
	if path.Ext(base) == "" {
		return "", fmt.Errorf("url %q filename has no extension", raw)
	}
	return base, nil
}
