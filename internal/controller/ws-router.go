package controller

import (
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.OnError(c.handleWSError)
	mux.SetReadTimeout(c.config.ReadTimeout)

	// room
	wsrouter.AddRoute(mux, "join", c.handleJoin)

	// player
	wsrouter.AddRoute(mux, "control", c.handleControl)

	// chat
	wsrouter.AddRoute(mux, "chat", c.handleChat)
	wsrouter.AddRoute(mux, "GET_CHATS", c.handleGetChats)

	return mux
}
