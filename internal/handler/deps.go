package handler

import (
	"coderoom/internal/app/execution"
	"coderoom/internal/app/room"
	"coderoom/internal/app/session"
	"coderoom/internal/configs"
)

type AppDeps struct {
	Gateway     *session.Gateway
	Registry    *room.Registry
	Coordinator *execution.Coordinator
	Config      *configs.AppConfig
}
