package repository

import (
	"context"

	"github.com/paulmbugua/Online-Tutor-App/internal/models"
)

type PackageRepository struct {
	db DBTX
}

func NewPackageRepository(db DBTX) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) List(ctx context.Context) ([]models.Package, error) {
	query := `
		SELECT id, credits, price, offer
		FROM packages
		ORDER BY price ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packages := make([]models.Package, 0)
	for rows.Next() {
		var pkg models.Package
		if err := rows.Scan(&pkg.ID, &pkg.Credits, &pkg.Price, &pkg.Offer); err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *PackageRepository) GetByID(ctx context.Context, id int64) (*models.Package, error) {
	query := `
		SELECT id, credits, price, offer
		FROM packages
		WHERE id = $1
	`
	var pkg models.Package
	if err := r.db.QueryRow(ctx, query, id).Scan(&pkg.ID, &pkg.Credits, &pkg.Price, &pkg.Offer); err != nil {
		return nil, err
	}
	return &pkg, nil
}
