package repositories

import (
	"fmt"
	"time"

	"procurement-backend/apperrors"
	"procurement-backend/db/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentHead is the part of a document the workflow engine works with.
type DocumentHead struct {
	Ref      models.DocumentRef
	Status   models.DocumentStatus
	ParentID uint
}

// Parent returns the predecessor reference, if the kind has one.
func (h DocumentHead) Parent() (models.DocumentRef, bool) {
	k, err := KindOf(h.Ref.Type)
	if err != nil || !k.HasParent() || h.ParentID == 0 {
		return models.DocumentRef{}, false
	}
	return models.DocumentRef{Type: k.Parent, ID: h.ParentID}, true
}

type DocumentRepository interface {
	CreateDocument(tx *gorm.DB, document interface{}) error
	GetHead(tx *gorm.DB, ref models.DocumentRef) (*DocumentHead, error)
	LockHead(tx *gorm.DB, ref models.DocumentRef) (*DocumentHead, error)
	CountChildren(tx *gorm.DB, parent models.DocumentRef, child models.DocumentType, exclude ...models.DocumentStatus) (int64, error)
	ChildStatuses(tx *gorm.DB, parent models.DocumentRef, child models.DocumentType) ([]models.DocumentStatus, error)
	ListOverdueCanvasses(tx *gorm.DB, now time.Time) ([]uint, error)
	NextSequence(tx *gorm.DB, docType models.DocumentType, year int) (int, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *documentRepository) CreateDocument(tx *gorm.DB, document interface{}) error {
	if err := r.conn(tx).Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *documentRepository) GetHead(tx *gorm.DB, ref models.DocumentRef) (*DocumentHead, error) {
	return r.head(r.conn(tx), ref, false)
}

// LockHead reads the document row with SELECT ... FOR UPDATE. Drivers without
// row locks (SQLite) drop the clause.
func (r *documentRepository) LockHead(tx *gorm.DB, ref models.DocumentRef) (*DocumentHead, error) {
	return r.head(r.conn(tx), ref, true)
}

type headRow struct {
	ID       uint
	Status   string
	ParentID uint
}

func (r *documentRepository) head(db *gorm.DB, ref models.DocumentRef, lock bool) (*DocumentHead, error) {
	k, err := KindOf(ref.Type)
	if err != nil {
		return nil, err
	}

	columns := "id, status"
	if k.HasParent() {
		columns += ", " + k.ParentColumn + " AS parent_id"
	}

	query := db.Table(k.Table).Select(columns).Where("id = ?", ref.ID).Limit(1)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []headRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", ref, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, ref)
	}

	return &DocumentHead{
		Ref:      ref,
		Status:   models.DocumentStatus(rows[0].Status),
		ParentID: rows[0].ParentID,
	}, nil
}

// CountChildren counts child documents of parent, skipping those in any of the
// exclude statuses.
func (r *documentRepository) CountChildren(tx *gorm.DB, parent models.DocumentRef, child models.DocumentType, exclude ...models.DocumentStatus) (int64, error) {
	k, err := childKind(parent, child)
	if err != nil {
		return 0, err
	}
	query := r.conn(tx).Table(k.Table).Where(k.ParentColumn+" = ?", parent.ID)
	if len(exclude) > 0 {
		query = query.Where("status NOT IN ?", exclude)
	}
	var count int64
	err = query.Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count %s documents of %s: %w", child, parent, err)
	}
	return count, nil
}

func (r *documentRepository) ChildStatuses(tx *gorm.DB, parent models.DocumentRef, child models.DocumentType) ([]models.DocumentStatus, error) {
	k, err := childKind(parent, child)
	if err != nil {
		return nil, err
	}
	var raw []string
	err = r.conn(tx).Table(k.Table).Where(k.ParentColumn+" = ?", parent.ID).Order("id").Pluck("status", &raw).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents of %s: %w", child, parent, err)
	}
	statuses := make([]models.DocumentStatus, len(raw))
	for i, s := range raw {
		statuses[i] = models.DocumentStatus(s)
	}
	return statuses, nil
}

func childKind(parent models.DocumentRef, child models.DocumentType) (Kind, error) {
	k, err := KindOf(child)
	if err != nil {
		return Kind{}, err
	}
	if k.Parent != parent.Type {
		return Kind{}, fmt.Errorf("%s is not a child kind of %s", child, parent.Type)
	}
	return k, nil
}

func (r *documentRepository) ListOverdueCanvasses(tx *gorm.DB, now time.Time) ([]uint, error) {
	var ids []uint
	err := r.conn(tx).Model(&models.Canvass{}).
		Where("status IN ? AND deadline < ?",
			[]models.DocumentStatus{models.CanvassStatusPending, models.CanvassStatusInProgress}, now).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue canvasses: %w", err)
	}
	return ids, nil
}

// NextSequence increments and returns the yearly counter for docType. It must
// run inside the transaction that inserts the numbered document.
func (r *documentRepository) NextSequence(tx *gorm.DB, docType models.DocumentType, year int) (int, error) {
	db := r.conn(tx)

	seed := models.DocumentSequence{DocumentType: docType, Year: year}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, fmt.Errorf("failed to initialise %s sequence: %w", docType, err)
	}

	var seq models.DocumentSequence
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("document_type = ? AND year = ?", docType, year).
		First(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("failed to lock %s sequence: %w", docType, err)
	}

	seq.LastValue++
	err = db.Model(&models.DocumentSequence{}).
		Where("document_type = ? AND year = ?", docType, year).
		Update("last_value", seq.LastValue).Error
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", docType, err)
	}
	return seq.LastValue, nil
}
