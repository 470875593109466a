package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/annel0/blockverse/internal/vec"
)

// MariaPositionRepo позиции в таблице player_positions MariaDB/MySQL
type MariaPositionRepo struct {
	db *sql.DB
}

// NewMariaPositionRepo подключается по DSN (user:pass@tcp(host:port)/dbname)
// и создаёт таблицу, если её нет
func NewMariaPositionRepo(dsn string) (*MariaPositionRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}
	repo := &MariaPositionRepo{db: db}
	if err := repo.createTable(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *MariaPositionRepo) createTable() error {
	const query = `
		CREATE TABLE IF NOT EXISTS player_positions (
			name       VARCHAR(16) PRIMARY KEY,
			x          FLOAT       NOT NULL,
			y          FLOAT       NOT NULL,
			z          FLOAT       NOT NULL,
			direction  FLOAT       NOT NULL DEFAULT 0,
			pitch      FLOAT       NOT NULL DEFAULT 0,
			updated_at TIMESTAMP   DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE   CURRENT_TIMESTAMP
		) ENGINE=InnoDB`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка создания таблицы player_positions: %w", err)
	}
	return nil
}

const upsertPosition = `
	INSERT INTO player_positions (name, x, y, z, direction, pitch)
	VALUES (?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		x = VALUES(x), y = VALUES(y), z = VALUES(z),
		direction = VALUES(direction), pitch = VALUES(pitch),
		updated_at = CURRENT_TIMESTAMP`

func (r *MariaPositionRepo) Save(ctx context.Context, name string, c vec.Coords) error {
	if err := checkName(name); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertPosition, name, c.Xf, c.Yf, c.Zf, c.Direction, c.Pitch); err != nil {
		return fmt.Errorf("ошибка сохранения позиции %s: %w", name, err)
	}
	return nil
}

func (r *MariaPositionRepo) Load(ctx context.Context, name string) (vec.Coords, bool, error) {
	if err := checkName(name); err != nil {
		return vec.Coords{}, false, err
	}
	var c vec.Coords
	err := r.db.QueryRowContext(ctx,
		`SELECT x, y, z, direction, pitch FROM player_positions WHERE name = ?`, name,
	).Scan(&c.Xf, &c.Yf, &c.Zf, &c.Direction, &c.Pitch)
	if errors.Is(err, sql.ErrNoRows) {
		return vec.Coords{}, false, nil
	}
	if err != nil {
		return vec.Coords{}, false, fmt.Errorf("ошибка загрузки позиции %s: %w", name, err)
	}
	return c, true, nil
}

// BatchSave сохраняет позиции в одной транзакции
func (r *MariaPositionRepo) BatchSave(ctx context.Context, positions map[string]vec.Coords) error {
	if len(positions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPosition)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for name, c := range positions {
		if err := checkName(name); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, name, c.Xf, c.Yf, c.Zf, c.Direction, c.Pitch); err != nil {
			return fmt.Errorf("ошибка сохранения позиции %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

func (r *MariaPositionRepo) Close() error {
	return r.db.Close()
}
