package items

import (
	"context"
)

// Hooks lets callers extend writes without modifying the service. Before
// hooks may return an Override which the service merges into the payload of
// the language being written.

// Hooks defines all available lifecycle hooks
type Hooks struct {
	BeforeSave  []BeforeSaveHook
	AfterSave   []AfterSaveHook
	AfterDelete []AfterDeleteHook
	OnError     []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Actor     Actor
	Metadata  map[string]any // Custom metadata passed between hooks
	StopChain bool           // Set to true to stop processing remaining hooks
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context, actor Actor) *HookContext {
	return &HookContext{
		Context:  ctx,
		Actor:    actor,
		Metadata: make(map[string]any),
	}
}

// SaveInput describes the language row about to be written.
type SaveInput struct {
	Language string
	Payload  Payload
	// Existing is the current row, nil when the row is being created.
	Existing *Item
}

// Override replaces parts of a payload. Nil fields are left alone.
type Override struct {
	Title    *string
	Slug     *string
	Priority *int
	Fields   map[string]any
}

// Apply returns p with the override merged in. Fields are merged key by key.
func (o *Override) Apply(p Payload) Payload {
	if o == nil {
		return p
	}
	if o.Title != nil {
		p.Title = *o.Title
	}
	if o.Slug != nil {
		p.Slug = *o.Slug
	}
	if o.Priority != nil {
		p.Priority = *o.Priority
	}
	if len(o.Fields) > 0 {
		merged := make(map[string]any, len(p.Fields)+len(o.Fields))
		for k, v := range p.Fields {
			merged[k] = v
		}
		for k, v := range o.Fields {
			merged[k] = v
		}
		p.Fields = merged
	}
	return p
}

// BeforeSaveHook is called before a language row is written
type BeforeSaveHook func(hctx *HookContext, in SaveInput) (*Override, error)

// AfterSaveHook is called after a language row is written
type AfterSaveHook func(hctx *HookContext, item *Item) error

// AfterDeleteHook is called after a language row is deleted
type AfterDeleteHook func(hctx *HookContext, item *Item) error

// ErrorHook is called when an operation fails
type ErrorHook func(hctx *HookContext, operation string, err error)

// runBeforeSave returns the payload with every override applied in order.
func (h *Hooks) runBeforeSave(hctx *HookContext, in SaveInput) (Payload, error) {
	if h == nil {
		return in.Payload, nil
	}
	for _, hook := range h.BeforeSave {
		override, err := hook(hctx, in)
		if err != nil {
			return in.Payload, err
		}
		in.Payload = override.Apply(in.Payload)
		if hctx.StopChain {
			break
		}
	}
	return in.Payload, nil
}

func (h *Hooks) runAfterSave(hctx *HookContext, item *Item) error {
	if h == nil {
		return nil
	}
	for _, hook := range h.AfterSave {
		if err := hook(hctx, item); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) runAfterDelete(hctx *HookContext, item *Item) error {
	if h == nil {
		return nil
	}
	for _, hook := range h.AfterDelete {
		if err := hook(hctx, item); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) runOnError(hctx *HookContext, operation string, err error) {
	if h == nil {
		return
	}
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
	}
}
