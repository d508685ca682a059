package kernel

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"ember/internal/term"
)

// ===== Control Plane (HTTP) =====

// ControlPlane serves a read-mostly view of the node for operators.
type ControlPlane struct{ k *Kernel }

func NewControlPlane(k *Kernel) *ControlPlane {
	return &ControlPlane{k: k}
}

func (h *ControlPlane) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/processes", h.handleProcesses)
	mux.HandleFunc("/timers", h.handleTimers)
	mux.HandleFunc("/send", h.handleSend)
	return mux
}

type processView struct {
	Pid       string `json:"pid"`
	Name      string `json:"name,omitempty"`
	Mailbox   int    `json:"mailbox"`
	Received  uint64 `json:"received"`
	HeapUsed  int    `json:"heap_used"`
	Fragments int    `json:"heap_fragment_words"`
}

func (h *ControlPlane) handleProcesses(w http.ResponseWriter, r *http.Request) {
	h.k.Mu.RLock()
	names := make(map[term.LocalPid]string, len(h.k.NameIdx))
	for name, pid := range h.k.NameIdx {
		names[pid] = name.Name()
	}
	var pids []term.LocalPid
	for pid := range h.k.Processes {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return term.Compare(pids[i], pids[j]) < 0 })
	out := make([]processView, 0, len(pids))
	for _, pid := range pids {
		p := h.k.Processes[pid]
		st := p.Heap().Stats()
		out = append(out, processView{
			Pid:       pid.Inspect(),
			Name:      names[pid],
			Mailbox:   p.Mailbox.Len(),
			Received:  p.Mailbox.Received(),
			HeapUsed:  st.Used,
			Fragments: st.FragmentWords,
		})
	}
	h.k.Mu.RUnlock()
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

type timersView struct {
	Scheduled int    `json:"scheduled"`
	Fired     uint64 `json:"fired"`
	Cancelled uint64 `json:"cancelled"`
	Next      *int64 `json:"next_deadline,omitempty"`
	Now       int64  `json:"now"`
}

func (h *ControlPlane) handleTimers(w http.ResponseWriter, r *http.Request) {
	fired, cancelled := h.k.Timers.Stats()
	view := timersView{
		Scheduled: h.k.Timers.Len(),
		Fired:     fired,
		Cancelled: cancelled,
		Now:       h.k.Clock.Nanos(),
	}
	if next, ok := h.k.Timers.Next(); ok {
		view.Next = &next
	}
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

// handleSend sends an atom to a registered process.
func (h *ControlPlane) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req sendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(sendResp{OK: false, Error: err.Error()})
		return
	}
	if req.To == "" || req.Atom == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(sendResp{OK: false, Error: "to and atom are required"})
		return
	}
	if err := h.k.Send(term.Intern(req.To), term.Intern(req.Atom)); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, term.ErrBadarg) {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(sendResp{OK: false, Error: err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(sendResp{OK: true})
}

type sendReq struct {
	To   string `json:"to"` // registered name
	Atom string `json:"atom"`
}

type sendResp struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
