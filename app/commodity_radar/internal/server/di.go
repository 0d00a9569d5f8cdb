package server

import "github.com/google/wire"

// ProviderSet 服务端依赖注入 Provider 集合
var ProviderSet = wire.NewSet(NewHTTPServer)
