package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"slidedeck/internal/slide"
)

type deckRow struct {
	ID        string  `gorm:"primaryKey;type:varchar(64)"`
	OwnerID   string  `gorm:"index;type:varchar(64)"`
	Title     string  `gorm:"type:varchar(255)"`
	IsPublic  bool    `gorm:"default:false"`
	ShareSlug *string `gorm:"uniqueIndex;type:varchar(64)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (deckRow) TableName() string { return "decks" }

type slideRow struct {
	ID              string `gorm:"primaryKey;type:varchar(64)"`
	DeckID          string `gorm:"index;not null;type:varchar(64)"`
	Order           int    `gorm:"column:order_index;not null"`
	Title           string `gorm:"type:text"`
	Subtitle        string `gorm:"type:text"`
	Content         string `gorm:"type:text"`
	Layout          string `gorm:"type:varchar(32);default:content"`
	ImageURL        string `gorm:"column:image_url;type:text"`
	BackgroundColor string `gorm:"type:varchar(32)"`
	SectionName     string `gorm:"type:varchar(255)"`
	Notes           string `gorm:"type:text"`
	ImagePrompt     string `gorm:"type:text"`
	UpdatedAt       time.Time
}

func (slideRow) TableName() string { return "slides" }

type commentRow struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	SlideID   string `gorm:"index;not null;type:varchar(64)"`
	AuthorID  string `gorm:"not null;type:varchar(64)"`
	Content   string `gorm:"type:text"`
	Resolved  bool   `gorm:"default:false"`
	CreatedAt time.Time
}

func (commentRow) TableName() string { return "comments" }

type versionRow struct {
	ID            string `gorm:"primaryKey;type:varchar(64)"`
	SlideID       string `gorm:"uniqueIndex:idx_versions_slide_number;not null;type:varchar(64)"`
	AuthorID      string `gorm:"type:varchar(64)"`
	Title         string `gorm:"type:text"`
	Subtitle      string `gorm:"type:text"`
	Content       string `gorm:"type:text"`
	Layout        string `gorm:"type:varchar(32)"`
	Notes         string `gorm:"type:text"`
	VersionNumber int    `gorm:"uniqueIndex:idx_versions_slide_number;not null"`
	CreatedAt     time.Time
}

func (versionRow) TableName() string { return "slide_versions" }

// PostgresConfig holds the connection settings.
type PostgresConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// Postgres is the hosted Store backed by gorm.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects, tunes the pool and optionally migrates the tables
// the core reads and writes.
func OpenPostgres(cfg PostgresConfig) (*Postgres, error) {
	gormLogger := logger.New(
		log.New(log.Writer(), "[store] ", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	p := NewPostgres(db)
	if cfg.AutoMigrate {
		if err := p.Migrate(); err != nil {
			log.Printf("[store] AutoMigrate warning: %v", err)
		}
	}
	return p, nil
}

// NewPostgres wraps an already opened gorm handle.
func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates or updates the tables the store reads and writes.
func (p *Postgres) Migrate() error {
	return p.db.AutoMigrate(&deckRow{}, &slideRow{}, &commentRow{}, &versionRow{})
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Deck implements DeckReader.
func (p *Postgres) Deck(ctx context.Context, deckID string) (slide.Deck, error) {
	var row deckRow
	if err := p.db.WithContext(ctx).First(&row, "id = ?", deckID).Error; err != nil {
		return slide.Deck{}, notFound(err, "deck "+deckID)
	}
	return p.load(ctx, row)
}

// DeckBySlug implements Store.
func (p *Postgres) DeckBySlug(ctx context.Context, slug string) (slide.Deck, error) {
	if slug == "" {
		return slide.Deck{}, fmt.Errorf("empty slug: %w", ErrNotFound)
	}
	var row deckRow
	err := p.db.WithContext(ctx).
		Where("share_slug = ? AND is_public = ?", slug, true).
		First(&row).Error
	if err != nil {
		return slide.Deck{}, notFound(err, "shared deck "+slug)
	}
	return p.load(ctx, row)
}

// CreateDeck implements Store.
func (p *Postgres) CreateDeck(ctx context.Context, d slide.Deck) (slide.Deck, error) {
	if err := d.Validate(); err != nil {
		return slide.Deck{}, err
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	row := deckRow{ID: d.ID, OwnerID: d.OwnerID, Title: d.Title, IsPublic: d.IsPublic, ShareSlug: nullable(d.ShareSlug)}
	slides := make([]slide.Slide, len(d.Slides))
	rows := make([]slideRow, len(d.Slides))
	for i, s := range d.Slides {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.DeckID = d.ID
		slides[i] = s
		rows[i] = toSlideRow(s)
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			return tx.Create(&rows).Error
		}
		return nil
	})
	if err != nil {
		return slide.Deck{}, fmt.Errorf("create deck: %w", err)
	}
	d.Slides = slide.Sorted(slides)
	return d, nil
}

// UpdateSlideField implements SlideWriter.
func (p *Postgres) UpdateSlideField(ctx context.Context, slideID string, field slide.Field, value string) error {
	if !field.Valid() {
		return fmt.Errorf("unknown slide field %q", field)
	}
	if field == slide.FieldLayout {
		value = string(slide.ParseLayout(value))
	}
	res := p.db.WithContext(ctx).Model(&slideRow{}).Where("id = ?", slideID).Update(string(field), value)
	if res.Error != nil {
		return fmt.Errorf("update slide %s: %w", slideID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("slide %s: %w", slideID, ErrNotFound)
	}
	return nil
}

// SetVisibility implements Store.
func (p *Postgres) SetVisibility(ctx context.Context, deckID string, public bool, slug string) error {
	if err := (slide.Deck{IsPublic: public, ShareSlug: slug}).Validate(); err != nil {
		return err
	}
	res := p.db.WithContext(ctx).Model(&deckRow{}).Where("id = ?", deckID).
		Updates(map[string]any{"is_public": public, "share_slug": nullable(slug)})
	if res.Error != nil {
		return fmt.Errorf("set visibility %s: %w", deckID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("deck %s: %w", deckID, ErrNotFound)
	}
	return nil
}

// Comments implements CommentStore, oldest first.
func (p *Postgres) Comments(ctx context.Context, slideID string) ([]slide.Comment, error) {
	var rows []commentRow
	err := p.db.WithContext(ctx).Where("slide_id = ?", slideID).Order("created_at ASC, id ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	out := make([]slide.Comment, len(rows))
	for i, r := range rows {
		out[i] = slide.Comment{ID: r.ID, SlideID: r.SlideID, AuthorID: r.AuthorID, Content: r.Content, Resolved: r.Resolved, CreatedAt: r.CreatedAt}
	}
	return out, nil
}

// AddComment implements CommentStore.
func (p *Postgres) AddComment(ctx context.Context, c slide.Comment) (slide.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := commentRow{ID: c.ID, SlideID: c.SlideID, AuthorID: c.AuthorID, Content: c.Content, Resolved: c.Resolved, CreatedAt: c.CreatedAt}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return slide.Comment{}, fmt.Errorf("add comment: %w", err)
	}
	c.CreatedAt = row.CreatedAt
	return c, nil
}

// UpdateComment implements CommentStore.
func (p *Postgres) UpdateComment(ctx context.Context, c slide.Comment) error {
	res := p.db.WithContext(ctx).Model(&commentRow{}).
		Where("id = ? AND author_id = ?", c.ID, c.AuthorID).
		Updates(map[string]any{"content": c.Content, "resolved": c.Resolved})
	if res.Error != nil {
		return fmt.Errorf("update comment %s: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

// DeleteComment implements CommentStore.
func (p *Postgres) DeleteComment(ctx context.Context, c slide.Comment) error {
	res := p.db.WithContext(ctx).Where("id = ? AND author_id = ?", c.ID, c.AuthorID).Delete(&commentRow{})
	if res.Error != nil {
		return fmt.Errorf("delete comment %s: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

// Versions implements VersionStore, newest first.
func (p *Postgres) Versions(ctx context.Context, slideID string) ([]slide.Version, error) {
	var rows []versionRow
	err := p.db.WithContext(ctx).Where("slide_id = ?", slideID).Order("version_number DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	out := make([]slide.Version, len(rows))
	for i, r := range rows {
		out[i] = fromVersionRow(r)
	}
	return out, nil
}

// AppendVersion implements VersionStore. The number is allocated inside the
// insert transaction and the unique (slide_id, version_number) index rejects
// a concurrent duplicate.
func (p *Postgres) AppendVersion(ctx context.Context, v slide.Version) (slide.Version, error) {
	row := versionRow{
		ID:       uuid.NewString(),
		SlideID:  v.SlideID,
		AuthorID: v.AuthorID,
		Title:    v.Title,
		Subtitle: v.Subtitle,
		Content:  v.Content,
		Layout:   string(v.Layout),
		Notes:    v.Notes,
	}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&slideRow{}).Where("id = ?", v.SlideID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("slide %s: %w", v.SlideID, ErrNotFound)
		}
		var last struct{ N int }
		if err := tx.Model(&versionRow{}).
			Select("COALESCE(MAX(version_number), 0) AS n").
			Where("slide_id = ?", v.SlideID).
			Scan(&last).Error; err != nil {
			return err
		}
		row.VersionNumber = last.N + 1
		return tx.Create(&row).Error
	})
	if err != nil {
		return slide.Version{}, fmt.Errorf("append version: %w", err)
	}
	return fromVersionRow(row), nil
}

func (p *Postgres) load(ctx context.Context, row deckRow) (slide.Deck, error) {
	var rows []slideRow
	if err := p.db.WithContext(ctx).Where("deck_id = ?", row.ID).Order("order_index ASC, id ASC").Find(&rows).Error; err != nil {
		return slide.Deck{}, fmt.Errorf("load slides: %w", err)
	}
	d := slide.Deck{ID: row.ID, OwnerID: row.OwnerID, Title: row.Title, IsPublic: row.IsPublic}
	if row.ShareSlug != nil {
		d.ShareSlug = *row.ShareSlug
	}
	d.Slides = make([]slide.Slide, len(rows))
	for i, r := range rows {
		d.Slides[i] = fromSlideRow(r)
	}
	return d, nil
}

func toSlideRow(s slide.Slide) slideRow {
	return slideRow{
		ID:              s.ID,
		DeckID:          s.DeckID,
		Order:           s.Order,
		Title:           s.Title,
		Subtitle:        s.Subtitle,
		Content:         s.Content,
		Layout:          string(slide.ParseLayout(string(s.Layout))),
		ImageURL:        s.ImageURL,
		BackgroundColor: s.BackgroundColor,
		SectionName:     s.SectionName,
		Notes:           s.Notes,
		ImagePrompt:     s.ImagePrompt,
	}
}

func fromSlideRow(r slideRow) slide.Slide {
	return slide.Slide{
		ID:              r.ID,
		DeckID:          r.DeckID,
		Order:           r.Order,
		Title:           r.Title,
		Subtitle:        r.Subtitle,
		Content:         r.Content,
		Layout:          slide.ParseLayout(r.Layout),
		ImageURL:        r.ImageURL,
		BackgroundColor: r.BackgroundColor,
		SectionName:     r.SectionName,
		Notes:           r.Notes,
		ImagePrompt:     r.ImagePrompt,
	}
}

func fromVersionRow(r versionRow) slide.Version {
	return slide.Version{
		ID:            r.ID,
		SlideID:       r.SlideID,
		AuthorID:      r.AuthorID,
		Title:         r.Title,
		Subtitle:      r.Subtitle,
		Content:       r.Content,
		Layout:        slide.ParseLayout(r.Layout),
		Notes:         r.Notes,
		VersionNumber: r.VersionNumber,
		CreatedAt:     r.CreatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
