// Package sqlstore is the sqlite-backed note.Repository.
package sqlstore

import (
	"context"
	"embed"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kbukum/voicenotes/database"
	"github.com/kbukum/voicenotes/database/migration"
	"github.com/kbukum/voicenotes/errors"
	"github.com/kbukum/voicenotes/note"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations is the schema for the notes table.
var Migrations = migration.Source{FS: migrationsFS, Dir: "migrations"}

type record struct {
	ID        string    `gorm:"primaryKey"`
	Title     string    `gorm:"not null"`
	Content   string    `gorm:"not null"`
	Tags      []string  `gorm:"serializer:json;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false"`
}

func (record) TableName() string { return "notes" }

func (r *record) toNote() *note.Note {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return &note.Note{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Tags:      tags,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Store implements note.Repository on a database.DB.
type Store struct {
	db  *database.DB
	now func() time.Time
}

var _ note.Repository = (*Store)(nil)

func New(db *database.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// SeedIfEmpty inserts the sample notes into an empty table.
func (s *Store) SeedIfEmpty(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&record{}).Count(&count).Error; err != nil {
		return database.FromDatabase(err)
	}
	if count > 0 {
		return nil
	}
	samples := note.SampleNotes(s.now())
	rows := make([]record, 0, len(samples))
	for _, n := range samples {
		rows = append(rows, record{
			ID: n.ID, Title: n.Title, Content: n.Content, Tags: n.Tags,
			CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
		})
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return database.FromDatabase(err)
	}
	return nil
}

// List narrows rows with LIKE and then applies note.Matches, so LIKE
// wildcards in the search text cannot widen the result.
func (s *Store) List(ctx context.Context, q note.Query) ([]note.Note, error) {
	tx := s.db.WithContext(ctx).Order("updated_at DESC")
	if needle := strings.ToLower(strings.TrimSpace(q.Search)); needle != "" {
		like := "%" + needle + "%"
		tx = tx.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ? OR LOWER(tags) LIKE ?", like, like, like)
	}
	var rows []record
	if err := tx.Find(&rows).Error; err != nil {
		return nil, database.FromDatabase(err)
	}
	out := make([]note.Note, 0, len(rows))
	for i := range rows {
		n := rows[i].toNote()
		if n.Matches(q) {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*note.Note, error) {
	var row record
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if database.IsNotFound(err) {
		return nil, errors.NoteNotFound(id)
	}
	if err != nil {
		return nil, database.FromDatabase(err)
	}
	return row.toNote(), nil
}

func (s *Store) Create(ctx context.Context, in note.Input) (*note.Note, error) {
	now := s.now()
	row := record{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Content:   in.Content,
		Tags:      note.NormalizeTags(in.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, database.FromDatabase(err)
	}
	return row.toNote(), nil
}

func (s *Store) Update(ctx context.Context, id string, in note.Input) (*note.Note, error) {
	var out *note.Note
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		var row record
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			if database.IsNotFound(err) {
				return errors.NoteNotFound(id)
			}
			return err
		}
		row.Title = in.Title
		row.Content = in.Content
		row.Tags = note.NormalizeTags(in.Tags)
		row.UpdatedAt = s.now()
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		out = row.toNote()
		return nil
	})
	if err != nil {
		return nil, database.FromDatabase(err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&record{})
	if res.Error != nil {
		return false, database.FromDatabase(res.Error)
	}
	return res.RowsAffected > 0, nil
}
