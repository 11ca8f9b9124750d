package postgres

import (
	"context"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	"github.com/jhoicas/dispensario-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo encabezados de entradas, dispensaciones y devoluciones.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste el documento.
func (r *DocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	query := `
		INSERT INTO inventory_documents (id, kind, warehouse_id, patient_id, reference, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	patientID := (*string)(nil)
	if d.PatientID != "" {
		patientID = &d.PatientID
	}
	createdBy := (*string)(nil)
	if d.CreatedBy != "" {
		createdBy = &d.CreatedBy
	}
	_, err := r.q.Exec(ctx, query,
		d.ID, string(d.Kind), d.WarehouseID, patientID, d.Reference, d.Notes, createdBy, d.CreatedAt,
	)
	return mapError("insert document", err)
}
