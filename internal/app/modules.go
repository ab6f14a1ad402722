package app

import (
	"github.com/minio/minio-go/v7"
	"github.com/vk/jobchain/internal/registry"
	"github.com/vk/jobchain/modules/env_vars"
	"github.com/vk/jobchain/modules/http_request"
	"github.com/vk/jobchain/modules/print"
	"github.com/vk/jobchain/modules/s3"
	"github.com/vk/jobchain/modules/socketio_request"
	"github.com/zishang520/socket.io-client-go/socket"
)

// coreModules is the definitive list of all modules that are compiled into
// the jobchain binary. Connections are optional; handlers needing a missing
// one fail their jobs.
func (a *App) coreModules(sock *socket.Socket, objects *minio.Client) []registry.Module {
	sio := &socketio_request.Module{}
	if sock != nil {
		sio.Conn = sock
	}
	return []registry.Module{
		&env_vars.Module{},
		&print.Module{Out: a.outW},
		&http_request.Module{},
		&s3.Module{Client: objects},
		sio,
	}
}
