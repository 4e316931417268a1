// gorm gen 入口：连库生成查询代码后退出，见 internal/repository/gen.go
package main

import (
	"SolGuard/internal/repository"
	"SolGuard/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	repository.RunGenerate()
}
