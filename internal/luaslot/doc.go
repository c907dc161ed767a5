// Package luaslot lets Lua functions act as signal slots.
//
// A Host owns one gopher-lua state with the safe standard libraries
// (base, table, string, math) and a log function that forwards to logrus.
// New binds a global Lua function as a *signal.Slot:
//
//	host, _ := luaslot.NewHost()
//	_ = host.DoFile("hooks.lua")
//	slot, _ := luaslot.New[watcher.Event](host, "on_change")
//	w.Changed.Connect(slot, host)
//
// The Lua function is called as fn(sender, args). The sender arrives as a
// string (its String method, or its type name) and args is converted to a
// Lua value; structs become tables keyed by their json tag or field name.
// A Lua error, or a first return value of false, becomes the slot's error
// and is routed to the registry's exception handler.
//
// gopher-lua states are not goroutine-safe. Host serializes every call.
package luaslot
