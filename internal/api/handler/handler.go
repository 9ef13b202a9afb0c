package handler

import (
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/config"
	"github.com/PanagiwthsPapatheodoropoulos/fullstack-tsel/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	Period      *PeriodHandler
	Application *ApplicationHandler
	Result      *ResultHandler
	University  *UniversityHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth, cfg),
		Period:      NewPeriodHandler(svc.Period),
		Application: NewApplicationHandler(svc.Application),
		Result:      NewResultHandler(svc.Result),
		University:  NewUniversityHandler(svc.University),
	}
}
