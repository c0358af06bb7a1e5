package fanout

// Audience selects which attached connections receive a delivery.
type Audience int

const (
	// All delivers to every attached connection, the origin included.
	All Audience = iota
	// Others delivers to every attached connection except the origin.
	Others
	// Origin delivers to the originating connection only.
	Origin
	// Target delivers to exactly one named connection.
	Target
)

func (a Audience) String() string {
	switch a {
	case All:
		return "all"
	case Others:
		return "others"
	case Origin:
		return "origin"
	case Target:
		return "target"
	default:
		return "unknown"
	}
}

// Route names the cause of an outbound event. The same outbound kind can
// travel on different routes: a playback snapshot goes to the joiner alone
// on join but to everyone on an explicit sync.
type Route string

const (
	RoutePresenceCount    Route = "presence-count"
	RoutePresenceAnnounce Route = "presence-announce"
	RouteJoinSnapshot     Route = "join-snapshot"
	RouteJoinHistory      Route = "join-history"
	RoutePeerList         Route = "peer-list"
	RoutePeerJoined       Route = "peer-joined"
	RoutePeerLeft         Route = "peer-left"
	RouteChat             Route = "chat"
	RouteTrigger          Route = "trigger"
	RouteAward            Route = "award"
	RouteSurprise         Route = "surprise"
	RouteVideoLoaded      Route = "video-loaded"
	RoutePlayback         Route = "playback"
	RouteSyncSnapshot     Route = "sync-snapshot"
	RouteTyping           Route = "typing"
	RouteVoiceStatus      Route = "voice-status"
	RouteDriveLoaded      Route = "drive-loaded"
	RouteVoiceInvite      Route = "voice-invite"
	RouteSignal           Route = "signal"
	RouteError            Route = "error"
)

// Policy is the single source of truth for who sees what.
var Policy = map[Route]Audience{
	RoutePresenceCount:    All,
	RoutePresenceAnnounce: Others,
	RouteJoinSnapshot:     Origin,
	RouteJoinHistory:      Origin,
	RoutePeerList:         Origin,
	RoutePeerJoined:       Others,
	RoutePeerLeft:         Others,
	RouteChat:             All,
	RouteTrigger:          All,
	RouteAward:            All,
	RouteSurprise:         All,
	RouteVideoLoaded:      All,
	RoutePlayback:         Others,
	RouteSyncSnapshot:     All,
	RouteTyping:           Others,
	RouteVoiceStatus:      Others,
	RouteDriveLoaded:      Others,
	RouteVoiceInvite:      Others,
	RouteSignal:           Target,
	RouteError:            Origin,
}

// AudienceOf returns the audience for a route. Unknown routes resolve to
// Origin so a missing table entry can never leak an event to other parties.
func AudienceOf(r Route) Audience {
	if a, ok := Policy[r]; ok {
		return a
	}
	return Origin
}
