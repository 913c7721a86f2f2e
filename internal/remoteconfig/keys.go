package remoteconfig

// Flag keys read by the tracker daemon.
const (
	KeySantaTakeoff        = "SantaTakeoff"
	KeySantaArrival        = "SantaArrival"
	KeyDisableSantaTracker = "DisableSantaTracker"
	KeyRouteOffline        = "RouteOffline"
	KeyStatusMessage       = "StatusMessage"
)

var defaultScenes = []string{
	"airport", "boatload", "codelab", "elfmaker", "gumball", "jetpack", "penguinswim", "snowball",
}

// DefaultKeys is the flag set compared on every sync.
func DefaultKeys() Keys {
	return Keys{
		Ints:    []string{KeySantaTakeoff, KeySantaArrival},
		Strings: []string{KeyStatusMessage},
		Bools:   []string{KeyDisableSantaTracker, KeyRouteOffline},
		Scenes:  append([]string(nil), defaultScenes...),
	}
}
