package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	gosync "sync"

	"go.uber.org/zap"
)

// Folder layout processed by SyncFolder, in dependency order. Single-file
// stages hold one batch; directory stages hold one batch per *.json file,
// except question_groups whose files are flattened into one batch.
const (
	videosFile        = "videos.json"
	usersFile         = "users.json"
	questionGroupDir  = "question_groups"
	schemasFile       = "schemas.json"
	projectsFile      = "projects.json"
	projectGroupsFile = "project_groups.json"
	assignmentsFile   = "assignments.json"
	annotationsDir    = "annotations"
	groundTruthsDir   = "ground_truths"
)

// SyncFolder runs every stage present under root in dependency order.
// Missing files and directories are skipped. The first stage with a
// rejected batch stops the run; later stages are not attempted. Annotation
// and ground-truth files run as independent concurrent batches.
func (e *Engine) SyncFolder(ctx context.Context, root string) ([]*Summary, error) {
	var summaries []*Summary

	run := func(sum *Summary, err error) error {
		if sum != nil {
			summaries = append(summaries, sum)
		}
		return err
	}

	if recs, ok, err := loadRecordsFile[VideoRecord](filepath.Join(root, videosFile)); err != nil {
		return summaries, err
	} else if ok {
		if err := run(e.SyncVideos(ctx, recs)); err != nil {
			return summaries, err
		}
	}

	if recs, ok, err := loadRecordsFile[UserRecord](filepath.Join(root, usersFile)); err != nil {
		return summaries, err
	} else if ok {
		if err := run(e.SyncUsers(ctx, recs)); err != nil {
			return summaries, err
		}
	}

	if recs, ok, err := loadRecordsDir[QuestionGroupRecord](filepath.Join(root, questionGroupDir)); err != nil {
		return summaries, err
	} else if ok {
		if err := run(e.SyncQuestionGroups(ctx, recs)); err != nil {
			return summaries, err
		}
	}

	if recs, ok, err := loadRecordsFile[SchemaRecord](filepath.Join(root, schemasFile)); err != nil {
		return summaries, err
	} else if ok {
		if err := run(e.SyncSchemas(ctx, recs)); err != nil {
			return summaries, err
		}
	}

	if recs, ok, err := loadRecordsFile[ProjectRecord](filepath.Join(root, projectsFile)); err != nil {
		return summaries, err
	} else if ok {
		if err := run(e.SyncProjects(ctx, recs)); err != nil {
			return summaries, err
		}
	}

	if recs, ok, err := loadRecordsFile[ProjectGroupRecord](filepath.Join(root, projectGroupsFile)); err != nil {
		return summaries, err
	} else if ok {
		if err := run(e.SyncProjectGroups(ctx, recs)); err != nil {
			return summaries, err
		}
	}

	if recs, ok, err := loadRecordsFile[AssignmentRecord](filepath.Join(root, assignmentsFile)); err != nil {
		return summaries, err
	} else if ok {
		if err := run(e.SyncAssignments(ctx, recs)); err != nil {
			return summaries, err
		}
	}

	sums, err := e.syncAnswerDir(ctx, filepath.Join(root, annotationsDir), false)
	summaries = append(summaries, sums...)
	if err != nil {
		return summaries, err
	}

	sums, err = e.syncAnswerDir(ctx, filepath.Join(root, groundTruthsDir), true)
	summaries = append(summaries, sums...)
	if err != nil {
		return summaries, err
	}

	e.logger.Info("folder sync complete", zap.String("root", root), zap.Int("batches", len(summaries)))
	return summaries, nil
}

// syncAnswerDir runs each *.json file under dir as its own batch, at most
// answerWorkers at a time. A submission key appearing in two files aborts
// the whole stage before anything runs. Results are reported in filename
// order and the first failure wins.
func (e *Engine) syncAnswerDir(ctx context.Context, dir string, groundTruth bool) ([]*Summary, error) {
	files, ok, err := listJSONFiles(dir)
	if err != nil || !ok {
		return nil, err
	}

	batches := make([][]AnswerRecord, len(files))
	seen := make(map[[4]string]string)
	for i, file := range files {
		recs, _, err := loadRecordsFile[AnswerRecord](file)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			key := [4]string{answerVideoUID(rec.VideoUID), rec.UserName, rec.QuestionGroupTitle, rec.ProjectName}
			if prev, dup := seen[key]; dup && prev != file {
				return nil, fmt.Errorf("duplicate submission for video %q, user %q, group %q, project %q in %s and %s",
					key[0], key[1], key[2], key[3], prev, file)
			}
			seen[key] = file
		}
		batches[i] = recs
	}

	type result struct {
		sum *Summary
		err error
	}
	results := make([]result, len(files))
	sem := make(chan struct{}, e.answerWorkers)
	var wg gosync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(pos int, path string, recs []AnswerRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var sum *Summary
			var err error
			if groundTruth {
				sum, err = e.SyncGroundTruths(ctx, recs)
			} else {
				sum, err = e.SyncAnnotations(ctx, recs)
			}
			if err != nil {
				err = fmt.Errorf("%s: %w", path, err)
			}
			results[pos] = result{sum: sum, err: err}
		}(i, file, batches[i])
	}
	wg.Wait()

	var summaries []*Summary
	for _, res := range results {
		if res.sum != nil {
			summaries = append(summaries, res.sum)
		}
		if res.err != nil {
			return summaries, res.err
		}
	}
	return summaries, nil
}

// loadRecordsFile reads one batch file. ok is false when the file does not
// exist.
func loadRecordsFile[T any](path string) ([]T, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	recs, err := DecodeRecords[T](data)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	return recs, true, nil
}

// loadRecordsDir flattens every *.json file under dir into one batch, in
// filename order. ok is false when the directory does not exist.
func loadRecordsDir[T any](dir string) ([]T, bool, error) {
	files, ok, err := listJSONFiles(dir)
	if err != nil || !ok {
		return nil, ok, err
	}
	var all []T
	for _, file := range files {
		recs, _, err := loadRecordsFile[T](file)
		if err != nil {
			return nil, true, err
		}
		all = append(all, recs...)
	}
	return all, true, nil
}

func listJSONFiles(dir string) ([]string, bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, true, nil
}
