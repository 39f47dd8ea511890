package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/maynagashev/contactkeeper/models"
)

// MaxTagDepth - максимальная глубина дерева тегов (тег и его предки).
const MaxTagDepth = 5

// TagRepository определяет методы для работы с тегами.
type TagRepository interface {
	// List возвращает теги, упорядоченные по пути от корня.
	List(ctx context.Context, q DBTX) ([]models.TagListItem, error)
	Get(ctx context.Context, q DBTX, tagID uuid.UUID) (*models.Tag, error)
	Upsert(ctx context.Context, q DBTX, tag *models.Tag) error
	// Chain возвращает ID тега и его предков, начиная с самого тега, не более limit штук.
	Chain(ctx context.Context, q DBTX, tagID uuid.UUID, limit int) ([]uuid.UUID, error)
	// Height возвращает число уровней поддерева тега вместе с ним самим (0, если тега
	// нет), считая не дальше limit уровней.
	Height(ctx context.Context, q DBTX, tagID uuid.UUID, limit int) (int, error)
}

// postgresTagRepository реализует TagRepository для PostgreSQL.
type postgresTagRepository struct{}

// NewPostgresTagRepository создает новый экземпляр репозитория тегов.
func NewPostgresTagRepository() TagRepository {
	return &postgresTagRepository{}
}

func (r *postgresTagRepository) List(ctx context.Context, q DBTX) ([]models.TagListItem, error) {
	// Путь собирается обходом предков, но не глубже MaxTagDepth
	query := `WITH RECURSIVE chain AS (
	              SELECT t.id AS tag_id, t.parent_id, t.name::text AS path_name, 1 AS depth
	              FROM tags t
	              UNION ALL
	              SELECT c.tag_id, p.parent_id, p.name || chr(28) || c.path_name, c.depth + 1
	              FROM chain c
	              JOIN tags p ON p.id = c.parent_id
	              WHERE c.depth < $1
	          )
	          SELECT t.id, t.name, c.path_name
	          FROM tags t
	          JOIN LATERAL (
	              SELECT chain.path_name FROM chain WHERE chain.tag_id = t.id ORDER BY chain.depth DESC LIMIT 1
	          ) c ON true
	          ORDER BY c.path_name`

	items := make([]models.TagListItem, 0)
	if err := q.SelectContext(ctx, &items, query, MaxTagDepth); err != nil {
		log.Printf("[TagRepo] Ошибка получения списка тегов: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка тегов: %w", err)
	}
	return items, nil
}

func (r *postgresTagRepository) Get(ctx context.Context, q DBTX, tagID uuid.UUID) (*models.Tag, error) {
	query := `SELECT id, name, parent_id, memo FROM tags WHERE id = $1`
	var tag models.Tag
	if err := q.GetContext(ctx, &tag, query, tagID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[TagRepo] Тег %s не найден", tagID)
			return nil, ErrTagNotFound
		}
		log.Printf("[TagRepo] Ошибка при поиске тега %s: %v", tagID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение тега: %w", err)
	}
	return &tag, nil
}

func (r *postgresTagRepository) Upsert(ctx context.Context, q DBTX, tag *models.Tag) error {
	query := `INSERT INTO tags (id, name, parent_id, memo) VALUES ($1, $2, $3, $4)
	          ON CONFLICT (id) DO UPDATE
	          SET name = EXCLUDED.name, parent_id = EXCLUDED.parent_id, memo = EXCLUDED.memo`
	if _, err := q.ExecContext(ctx, query, tag.ID, tag.Name, tag.ParentID, tag.Memo); err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			log.Printf("[TagRepo] Родительский тег для %s не найден", tag.ID)
			return ErrTagNotFound
		}
		log.Printf("[TagRepo] Ошибка сохранения тега %s: %v", tag.ID, err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение тега: %w", err)
	}
	log.Printf("[TagRepo] Тег %s сохранен", tag.ID)
	return nil
}

func (r *postgresTagRepository) Chain(ctx context.Context, q DBTX, tagID uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `WITH RECURSIVE chain AS (
	              SELECT id, parent_id, 1 AS depth FROM tags WHERE id = $1
	              UNION ALL
	              SELECT t.id, t.parent_id, c.depth + 1
	              FROM tags t
	              JOIN chain c ON t.id = c.parent_id
	              WHERE c.depth < $2
	          )
	          SELECT id FROM chain ORDER BY depth`

	ids := make([]uuid.UUID, 0, limit)
	if err := q.SelectContext(ctx, &ids, query, tagID, limit); err != nil {
		log.Printf("[TagRepo] Ошибка обхода предков тега %s: %v", tagID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на обход предков тега: %w", err)
	}
	return ids, nil
}

func (r *postgresTagRepository) Height(ctx context.Context, q DBTX, tagID uuid.UUID, limit int) (int, error) {
	query := `WITH RECURSIVE subtree AS (
	              SELECT id, 1 AS depth FROM tags WHERE id = $1
	              UNION ALL
	              SELECT t.id, s.depth + 1
	              FROM tags t
	              JOIN subtree s ON t.parent_id = s.id
	              WHERE s.depth < $2
	          )
	          SELECT COALESCE(MAX(depth), 0) FROM subtree`

	var height int
	if err := q.GetContext(ctx, &height, query, tagID, limit); err != nil {
		log.Printf("[TagRepo] Ошибка обхода потомков тега %s: %v", tagID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на обход потомков тега: %w", err)
	}
	return height, nil
}

// Кастомные ошибки репозитория тегов.
var (
	ErrTagNotFound = errors.New("тег не найден")
)
