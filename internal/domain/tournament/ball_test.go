package tournament

import (
	"testing"

	sonic "github.com/bytedance/sonic"
)

func TestBall_JSONEncoding(t *testing.T) {
	t.Parallel()

	over := Over{
		OverNumber: 16,
		Balls:      []Ball{RunsBall(4), RunsBall(0), MarkerBall(BallWicket), MarkerBall(BallWide)},
	}
	raw, err := sonic.Marshal(over)
	if err != nil {
		t.Fatalf("marshal over: %v", err)
	}
	want := `{"overNumber":16,"balls":[4,0,"wicket","wide"]}`
	if string(raw) != want {
		t.Fatalf("unexpected json:\n got=%s\nwant=%s", raw, want)
	}

	var decoded Over
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal over: %v", err)
	}
	if decoded.Balls[2].Kind != BallWicket || decoded.Balls[0].Runs != 4 {
		t.Fatalf("unexpected decoded balls: %+v", decoded.Balls)
	}
}

func TestBall_RejectsUnknownMarker(t *testing.T) {
	t.Parallel()

	var b Ball
	if err := b.UnmarshalJSON([]byte(`"bye"`)); err == nil {
		t.Fatalf("expected error for unknown marker")
	}
}
