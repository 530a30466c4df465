package sdc

type HookPoint int

const (
	HookPostStep  HookPoint = iota // after each sweep of one sweeper
	HookPostTrans                  // after each inter-level transfer
)

type Hook func(s *State)

/*
	Hooks is a registry of callbacks invoked synchronously, in
	registration order. The registry must not be modified from inside a
	callback.
*/
type Hooks struct {
	reg map[HookPoint][]Hook
}

func (h *Hooks) Add(p HookPoint, fn Hook) {
	if h.reg == nil {
		h.reg = make(map[HookPoint][]Hook)
	}
	h.reg[p] = append(h.reg[p], fn)
}

func (h *Hooks) Call(p HookPoint, s *State) {
	for _, fn := range h.reg[p] {
		fn(s)
	}
}
