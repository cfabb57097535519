package services

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/sneadict/backend/internal/data/repos"
	"github.com/sneadict/backend/internal/mdf"
	"github.com/sneadict/backend/internal/pkg/dbctx"
	"github.com/sneadict/backend/internal/pkg/logger"
)

type ExportService interface {
	// WriteSourceMDF streams every live record of the source as one MDF
	// file, entries separated by blank lines, ordered by record id.
	WriteSourceMDF(dbc dbctx.Context, sourceID int, w io.Writer) error

	// WriteBundle writes a zip archive holding one .mdf file per source.
	WriteBundle(dbc dbctx.Context, w io.Writer) error
}

type exportService struct {
	db         *gorm.DB
	log        *logger.Logger
	recordRepo repos.RecordRepo
	sourceRepo repos.SourceRepo
}

func NewExportService(db *gorm.DB, baseLog *logger.Logger, recordRepo repos.RecordRepo, sourceRepo repos.SourceRepo) ExportService {
	return &exportService{
		db:         db,
		log:        baseLog.With("service", "ExportService"),
		recordRepo: recordRepo,
		sourceRepo: sourceRepo,
	}
}

func (s *exportService) WriteSourceMDF(dbc dbctx.Context, sourceID int, w io.Writer) error {
	if _, err := s.sourceRepo.GetByID(dbc.Ctx, dbc.Tx, sourceID); err != nil {
		return err
	}
	records, err := s.recordRepo.GetLiveBySourceID(dbc.Ctx, dbc.Tx, sourceID)
	if err != nil {
		return err
	}
	for i, rec := range records {
		if i > 0 {
			if _, err := io.WriteString(w, "\n\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, mdf.Format(rec.MDFData)); err != nil {
			return err
		}
	}
	if len(records) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) WriteBundle(dbc dbctx.Context, w io.Writer) error {
	sources, err := s.sourceRepo.List(dbc.Ctx, dbc.Tx)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, src := range sources {
		f, err := zw.Create(exportFilename(src.Name))
		if err != nil {
			return fmt.Errorf("create bundle entry for %q: %w", src.Name, err)
		}
		if err := s.WriteSourceMDF(dbc, src.ID, f); err != nil {
			return fmt.Errorf("export source %q: %w", src.Name, err)
		}
	}
	return zw.Close()
}

// exportFilename turns a source name into a safe zip member name.
func exportFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		out = "source"
	}
	return out + ".mdf"
}
