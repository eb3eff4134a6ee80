package archive

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Artifact kinds. One row exists per (meeting, kind); rewriting an
// artifact replaces the previous version.
const (
	KindTranscript  = "transcript"
	KindProcessed   = "processed"
	KindSummary     = "summary"
	KindActionItems = "action_items"
	KindRisks       = "risks"
)

type Artifact struct {
	ID        string    `gorm:"primaryKey;column:id"`
	MeetingID string    `gorm:"column:meeting_id;not null;uniqueIndex:idx_archive_meeting_kind"`
	Kind      string    `gorm:"column:kind;not null;uniqueIndex:idx_archive_meeting_kind"`
	Content   string    `gorm:"column:content;not null"`
	Hash      string    `gorm:"column:hash;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Artifact) TableName() string {
	return "meeting_archive"
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Artifact{}); err != nil {
		return nil, fmt.Errorf("archive: running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Put(ctx context.Context, meetingID, kind, content string) error {
	if meetingID == "" {
		return fmt.Errorf("archive: meeting id must not be empty")
	}

	artifact := &Artifact{
		ID:        uuid.NewString(),
		MeetingID: meetingID,
		Kind:      kind,
		Content:   content,
		Hash:      contentHash(content),
		UpdatedAt: time.Now().UTC(),
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "meeting_id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "hash", "updated_at"}),
	}).Create(artifact).Error
}

// PutJSON stores a structured artifact (action items, risks) as JSON.
func (s *Store) PutJSON(ctx context.Context, meetingID, kind string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("archive: encoding %s for meeting %q: %w", kind, meetingID, err)
	}
	return s.Put(ctx, meetingID, kind, string(b))
}

func (s *Store) Get(ctx context.Context, meetingID, kind string) (*Artifact, error) {
	a := &Artifact{}
	err := s.db.WithContext(ctx).
		Where("meeting_id = ? AND kind = ?", meetingID, kind).
		First(a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("archive: no %s for meeting %q", kind, meetingID)
		}
		return nil, err
	}
	return a, nil
}

func (s *Store) ForMeeting(ctx context.Context, meetingID string) ([]Artifact, error) {
	var artifacts []Artifact
	err := s.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("kind").
		Find(&artifacts).Error
	return artifacts, err
}

func (s *Store) Search(ctx context.Context, query string) ([]Artifact, error) {
	pattern := "%" + query + "%"
	var artifacts []Artifact
	err := s.db.WithContext(ctx).
		Where("meeting_id LIKE ? OR content LIKE ?", pattern, pattern).
		Order("updated_at DESC").
		Find(&artifacts).Error
	return artifacts, err
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Artifact, error) {
	var artifacts []Artifact
	err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).
		Find(&artifacts).Error
	return artifacts, err
}

// RecentMeetings lists distinct meeting ids, most recently touched
// first.
func (s *Store) RecentMeetings(ctx context.Context, limit int) ([]string, error) {
	var rows []struct {
		MeetingID string
		Last      time.Time
	}
	err := s.db.WithContext(ctx).
		Model(&Artifact{}).
		Select("meeting_id, MAX(updated_at) AS last").
		Group("meeting_id").
		Order("last DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.MeetingID)
	}
	return ids, nil
}

func contentHash(value string) string {
	h := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", h[:16])
}
