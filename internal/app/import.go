package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	csvimport "github.com/okian/rsvp/internal/adapters/csvimport"
	repository "github.com/okian/rsvp/internal/adapters/repository"
	names "github.com/okian/rsvp/internal/domain/names"
	"github.com/okian/rsvp/pkg/logger"
	"github.com/okian/rsvp/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// ImportError describes one rejected CSV row.
type ImportError struct {
	Row   int    `json:"row"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// ImportedName records a stored invitee.
type ImportedName struct {
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
	ID         int64  `json:"id"`
}

// ImportResult summarizes an invitee import.
type ImportResult struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Errors     []ImportError  `json:"errors"`
	Names      []ImportedName `json:"names,omitempty"`
}

func normalizeInvitee(name string) string {
	return names.Normalize(name)
}

// ImportCSV reads a guest-list CSV and adds every named row. Row failures
// are collected in the result; only unreadable input or a cancelled context
// returns an error.
func (s *Service) ImportCSV(ctx context.Context, src io.Reader) (ImportResult, error) {
	if _, _, _, err := s.components(); err != nil {
		return ImportResult{}, err
	}

	parsed, err := csvimport.Parse(src)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{Total: parsed.Total(), Errors: []ImportError{}}
	for _, e := range parsed.Errors {
		res.Errors = append(res.Errors, ImportError{Row: e.Line, Name: e.Name, Error: e.Message})
		metrics.RecordImportRow(metrics.ImportInvalid)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.importConcurrency)
	for _, row := range parsed.Rows {
		g.Go(func() error {
			inv, err := s.AddInvitee(gctx, row.Name)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Names = append(res.Names, ImportedName{Original: row.Name, Normalized: inv.NameNormalized, ID: inv.ID})
				metrics.RecordImportRow(metrics.ImportImported)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				if errors.Is(err, ErrStorage) {
					s.logger.Error(gctx, "store invitee", logger.Int("row", row.Line), logger.Error(err))
				}
				res.Errors = append(res.Errors, ImportError{Row: row.Line, Name: row.Name, Error: importMessage(err)})
				metrics.RecordImportRow(importResultLabel(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ImportResult{}, fmt.Errorf("import invitees: %w", err)
	}

	sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].Row < res.Errors[j].Row })
	sort.Slice(res.Names, func(i, j int) bool { return res.Names[i].Normalized < res.Names[j].Normalized })
	res.Successful = len(res.Names)
	res.Failed = len(res.Errors)

	if n, err := s.InviteeCount(ctx); err == nil {
		s.logger.Info(ctx, "invitee import finished",
			logger.Int("total", res.Total),
			logger.Int("successful", res.Successful),
			logger.Int("failed", res.Failed),
			logger.Int64("invitees", n))
	}
	return res, nil
}

func importMessage(err error) string {
	switch {
	case errors.Is(err, repository.ErrDuplicateInvitee):
		return "Invitee already exists"
	case errors.Is(err, ErrInvalidName):
		return "Invalid name provided"
	default:
		return "Failed to store invitee"
	}
}

func importResultLabel(err error) string {
	switch {
	case errors.Is(err, repository.ErrDuplicateInvitee):
		return metrics.ImportDuplicate
	case errors.Is(err, ErrInvalidName):
		return metrics.ImportInvalid
	default:
		return metrics.ImportFailed
	}
}
