package postgres

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nsyszr/rtdb/pkg/model"
	"github.com/nsyszr/rtdb/pkg/storage"
	"github.com/pkg/errors"
)

func newRefreshTokenStore(db *sqlx.DB) *refreshTokenStore {
	return &refreshTokenStore{
		db: db,
	}
}

type refreshTokenStore struct {
	db *sqlx.DB
}

type sqlDataRefreshToken struct {
	Token     string    `db:"token"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

var sqlParamsRefreshToken = []string{
	"token",
	"user_id",
	"created_at",
}

func (d *sqlDataRefreshToken) Scan(m *model.RefreshToken) error {
	createdAt := m.CreatedAt
	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	d.Token = m.Token
	d.UserID = m.UserID
	d.CreatedAt = createdAt

	return nil
}

func (d *sqlDataRefreshToken) Model() (*model.RefreshToken, error) {
	m := &model.RefreshToken{
		Token:     d.Token,
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt,
	}

	return m, nil
}

func (s *refreshTokenStore) FindByToken(token string) (*model.RefreshToken, error) {
	d := sqlDataRefreshToken{}
	query := "SELECT * FROM refresh_tokens WHERE token=$1"
	if err := s.db.Get(&d, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find refresh token")
	}

	return d.Model()
}

func (s *refreshTokenStore) FindByUserID(userID string) ([]model.RefreshToken, error) {
	rows := make([]sqlDataRefreshToken, 0)
	models := make([]model.RefreshToken, 0)

	query := "SELECT * FROM refresh_tokens WHERE user_id=$1"
	if err := s.db.Select(&rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "failed to fetch refresh tokens")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to refresh token model")
		}

		models = append(models, *m)
	}

	return models, nil
}

func (s *refreshTokenStore) Create(m *model.RefreshToken) error {
	d := sqlDataRefreshToken{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert refresh token model to SQL data")
	}
	m.CreatedAt = d.CreatedAt

	query := "INSERT INTO refresh_tokens (" + strings.Join(sqlParamsRefreshToken, ", ") +
		") VALUES (:" + strings.Join(sqlParamsRefreshToken, ", :") + ")"
	if _, err := s.db.NamedExec(query, d); err != nil {
		return errors.Wrap(err, "failed to create refresh token")
	}

	return nil
}

func (s *refreshTokenStore) Delete(token string) error {
	query := "DELETE FROM refresh_tokens WHERE token=$1"
	if _, err := s.db.Exec(query, token); err != nil {
		return errors.Wrap(err, "failed to delete refresh token")
	}

	return nil
}

func (s *refreshTokenStore) DeleteExpiredByUserID(userID string, cutoff time.Time) error {
	query := "DELETE FROM refresh_tokens WHERE user_id=$1 AND created_at < $2"
	if _, err := s.db.Exec(query, userID, cutoff); err != nil {
		return errors.Wrap(err, "failed to delete expired refresh tokens")
	}

	return nil
}
