package runlog

import (
	"github.com/smallbiznis/salestream/internal/runlog/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("runlog",
	fx.Provide(repository.Provide),
)
