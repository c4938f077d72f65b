package wscore

import (
	"encoding/json"
	"testing"
)

func TestCommonResponseSerialization(t *testing.T) {
	r := NewCommonResponse()
	r.Error = append(r.Error, "Some Error!")

	if got := string(r.JSON()); got != `{"error":["Some Error!"],"result":{}}` {
		t.Fatalf("got %s", got)
	}
}

func TestCommonResponseEmptyCollectionsStayPresent(t *testing.T) {
	got := string(NewCommonResponse().JSON())
	if got != `{"error":[],"result":{}}` {
		t.Fatalf("empty response serialized as %s", got)
	}
}

func TestNotFoundResponseRoundTrip(t *testing.T) {
	raw := NotFoundResponse().JSON()

	var parsed CommonResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(parsed.Error) != 1 || parsed.Error[0] != NotFoundMessage {
		t.Fatalf("error slot = %v", parsed.Error)
	}
	if parsed.Result == nil || len(parsed.Result) != 0 {
		t.Fatalf("result slot = %v", parsed.Result)
	}
}
