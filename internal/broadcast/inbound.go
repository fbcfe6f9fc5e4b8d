package broadcast

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/primus/primacron/internal/gatewayerr"
)

// Version is the gateway build version surfaced via X-Powered-By.
var Version = "dev"

const poweredByName = "primacron"

// respBody is a pre-serialized {status,type,description} body, cached once
// at startup.
type respBody struct {
	json   []byte
	status int
}

func newRespBody(status int, typ, description string) respBody {
	data, _ := json.Marshal(struct {
		Status      int    `json:"status"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}{status, typ, description})
	return respBody{json: data, status: status}
}

var (
	respSending = newRespBody(http.StatusOK, "sending", "message delivered to local connection")
	respBroken  = newRespBody(http.StatusBadRequest, "broken", "request body could not be decoded")
	respInvalid = newRespBody(http.StatusBadRequest, "invalid", "request body was not a valid broadcast envelope")
	respUnknown = newRespBody(http.StatusNotFound, "unknown socket", "no local connection for the given id")
	respBadReq  = newRespBody(http.StatusBadRequest, "bad request", "unrecognized request")
)

func writeResp(w http.ResponseWriter, r respBody) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Powered-By", poweredByName+"/"+Version)
	w.WriteHeader(r.status)
	_, _ = w.Write(r.json)
}

// Deliverer dispatches a decoded broadcast message to a local connection,
// based on the runtime type of the decoded "message" value.
type Deliverer interface {
	// Has reports whether id refers to a currently-attached local
	// connection.
	Has(id string) bool
	// DeliverPipe writes payload directly to the client (message was a
	// JSON string).
	DeliverPipe(id string, payload string)
	// DeliverTail appends each address to the connection's tail list if
	// not already present (message was a JSON array).
	DeliverTail(id string, addresses []string)
	// DeliverMessage dispatches message as a generic external-message
	// event (message was any other JSON value).
	DeliverMessage(id string, message any)
}

// InboundHandler implements PUT <broadcast path>.
type InboundHandler struct {
	Deliverer Deliverer
	OnError   func(gatewayerr.Event)
}

func (h *InboundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeResp(w, respBadReq)
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.emitInvalid(err, string(raw))
		writeResp(w, respBroken)
		return
	}

	// Step 1: decode succeeds and yields a value.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		h.emitInvalid(err, string(raw))
		writeResp(w, respBroken)
		return
	}

	// Step 2: value is a JSON object, not an array or primitive.
	payload, ok := decoded.(map[string]any)
	if !ok {
		h.emitInvalid(nil, string(raw))
		writeResp(w, respInvalid)
		return
	}

	// Step 3: both id and message keys are present, and id is a string.
	idVal, hasID := payload["id"]
	msgVal, hasMsg := payload["message"]
	if !hasID || !hasMsg {
		h.emitInvalid(nil, string(raw))
		writeResp(w, respInvalid)
		return
	}
	id, ok := idVal.(string)
	if !ok {
		h.emitInvalid(nil, string(raw))
		writeResp(w, respInvalid)
		return
	}

	// Step 4: id must refer to a currently-attached local connection.
	// This is the common case when a session has migrated, so no
	// error::invalid is emitted here.
	if !h.Deliverer.Has(id) {
		writeResp(w, respUnknown)
		return
	}

	// Step 5: dispatch by the runtime type of message.
	switch m := msgVal.(type) {
	case string:
		h.Deliverer.DeliverPipe(id, m)
	case []any:
		h.Deliverer.DeliverTail(id, toStringSlice(m))
	default:
		h.Deliverer.DeliverMessage(id, msgVal)
	}
	writeResp(w, respSending)
}

func (h *InboundHandler) emitInvalid(err error, raw string) {
	if h.OnError == nil {
		return
	}
	h.OnError(gatewayerr.Event{
		Kind:    gatewayerr.KindInvalid,
		Err:     err,
		Context: map[string]any{"raw": raw},
	})
}

func toStringSlice(in []any) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
