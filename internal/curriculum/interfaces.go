package curriculum

import "context"

type Loader interface {
	Load(ctx context.Context, path string) (*Curriculum, error)
}
