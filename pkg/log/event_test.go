package log

import "testing"

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionNone.String(), "NONE"},
		{DirectionPlayback.String(), "PLAYBACK"},
		{DirectionCapture.String(), "CAPTURE"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerPolicy.String(), "POLICY"},
		{LayerPlatform.String(), "PLATFORM"},
		{LayerVerifier.String(), "VERIFIER"},
		{Layer(9).String(), "UNKNOWN"},
		{CategoryStream.String(), "STREAM"},
		{CategoryRouting.String(), "ROUTING"},
		{CategoryCheck.String(), "CHECK"},
		{CategoryPolicy.String(), "POLICY"},
		{CategoryError.String(), "ERROR"},
		{Category(9).String(), "UNKNOWN"},
		{RouteKindSelected.String(), "SELECTED"},
		{RouteKindPatch.String(), "PATCH"},
		{RouteKindCallback.String(), "CALLBACK"},
		{RouteKindReleased.String(), "RELEASED"},
		{RouteKind(9).String(), "UNKNOWN"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
