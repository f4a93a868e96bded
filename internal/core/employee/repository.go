package employee

import "context"

// Repository は社員永続化の抽象です。
//
// 実装はメールアドレスの一意制約をストレージ側でも保証し、違反時は ErrEmailAlreadyExists を返します。
// Update は e.Version と保存済みの version が一致する場合のみ更新し、不一致なら ErrVersionConflict を返します。
type Repository interface {
	List(ctx context.Context) ([]*Employee, error)
	FindByID(ctx context.Context, id int64) (*Employee, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmailExcludingID(ctx context.Context, email string, id int64) (bool, error)
	Create(ctx context.Context, e *Employee) (*Employee, error)
	Update(ctx context.Context, e *Employee) (*Employee, error)
	Delete(ctx context.Context, id int64) error
}
