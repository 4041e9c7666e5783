package ipc

import "errors"

var ErrUnauthorizedMethod = errors.New("unauthorized method")

// allowedMethods is the fixed set of engine methods a UI-side caller
// may invoke. Anything else is rejected before it reaches the engine
// channel. This is the single trust boundary between the untrusted
// UI process and the privileged engine.
var allowedMethods = map[string]struct{}{
	"add_download":         {},
	"pause_download":       {},
	"resume_download":      {},
	"cancel_download":      {},
	"remove_download":      {},
	"get_download":         {},
	"get_active_downloads": {},
	"get_all_downloads":    {},
	"get_global_stats":     {},
	"set_speed_limit":      {},
	"get_settings":         {},
	"update_settings":      {},
	"open_file":            {},
	"reveal_in_folder":     {},
}

// Authorized reports whether method is on the allow-list.
func Authorized(method string) bool {
	_, ok := allowedMethods[method]
	return ok
}
