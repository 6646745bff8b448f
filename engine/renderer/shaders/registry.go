package shaders

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Snow-11y/FPSFlux-sub005/engine/core"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/dispatch"
	"github.com/Snow-11y/FPSFlux-sub005/engine/renderer/frame"
)

// The engine only accepts precompiled byte code; the magic check turns a
// source file handed in by mistake into a loud failure instead of a driver
// crash.
const spirvMagic uint32 = 0x07230203

// Module is a registered precompiled shader.
type Module struct {
	Name   string
	Entry  string
	Handle dispatch.ShaderModuleHandle

	// Path is empty for byte-code registered directly from memory.
	Path string
}

// Registry holds precompiled shader modules by name. Modules registered from
// a file are watched and hot-reloaded: the watcher goroutine hands the reload
// to the render thread through the deferred-command queue.
type Registry struct {
	ops   dispatch.OperationSet
	sched *frame.Scheduler

	mutex   sync.RWMutex
	modules map[string]*Module

	fsnotify *fsnotify.Watcher
	byPath   map[string]string // path -> module name
	done     chan struct{}
	isClosed bool

	// Handles replaced by hot reload; destroyed at shutdown when no frame
	// can still reference them.
	retired []dispatch.ShaderModuleHandle
}

func NewRegistry(ops dispatch.OperationSet, sched *frame.Scheduler) (*Registry, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	r := &Registry{
		ops:      ops,
		sched:    sched,
		modules:  make(map[string]*Module),
		byPath:   make(map[string]string),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	go r.start()
	return r, nil
}

// Register creates a module from in-memory byte code.
func (r *Registry) Register(name string, code []byte, entry string) (*Module, error) {
	if err := validateByteCode(name, code); err != nil {
		return nil, err
	}
	handle, err := r.ops.CreateShaderModule(code, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader module '%s': %w", name, err)
	}
	m := &Module{Name: name, Entry: entry, Handle: handle}

	r.mutex.Lock()
	if old, exists := r.modules[name]; exists {
		r.retired = append(r.retired, old.Handle)
	}
	r.modules[name] = m
	r.mutex.Unlock()
	return m, nil
}

// RegisterFile loads byte code from disk and watches the file for rebuilds.
func (r *Registry) RegisterFile(name, path, entry string) (*Module, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader '%s': %w", path, err)
	}
	m, err := r.Register(name, code, entry)
	if err != nil {
		return nil, err
	}
	m.Path = path

	r.mutex.Lock()
	r.byPath[path] = name
	closed := r.isClosed
	r.mutex.Unlock()
	if closed {
		return nil, fmt.Errorf("shader registry already closed")
	}
	if err := r.fsnotify.Add(path); err != nil {
		core.LogWarn("shader '%s' registered without hot reload: %s", name, err.Error())
	}
	return m, nil
}

// Get looks a module up by name.
func (r *Registry) Get(name string) (*Module, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	m, ok := r.modules[name]
	if !ok {
		return nil, &core.ResourceNotFoundError{Kind: "shader module", Handle: 0}
	}
	return m, nil
}

func (r *Registry) start() {
	for {
		select {
		case <-r.done:
			return
		case event, ok := <-r.fsnotify.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := event.Name
			// Reload must run on the render thread; hand it off.
			if err := r.sched.Defer(func() error { return r.reload(path) }); err != nil {
				core.LogWarn("shader reload for '%s' dropped: %s", path, err.Error())
			}
		case err, ok := <-r.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher error: %s", err.Error())
		}
	}
}

func (r *Registry) reload(path string) error {
	r.mutex.RLock()
	name, ok := r.byPath[path]
	r.mutex.RUnlock()
	if !ok {
		return nil
	}

	m, err := r.Get(name)
	if err != nil {
		return err
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("shader reload read failed for '%s': %w", path, err)
	}
	if _, err := r.Register(name, code, m.Entry); err != nil {
		return err
	}
	if reloaded, err := r.Get(name); err == nil {
		reloaded.Path = path
	}
	core.LogInfo("shader '%s' hot-reloaded from %s", name, path)
	return nil
}

// Close stops the watcher and destroys every module. The device must be idle.
func (r *Registry) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.isClosed {
		return nil
	}
	r.isClosed = true
	close(r.done)
	if err := r.fsnotify.Close(); err != nil {
		core.LogError("failed to close shader watcher: %s", err.Error())
	}

	for _, m := range r.modules {
		if err := r.ops.DestroyShaderModule(m.Handle); err != nil {
			core.LogError("failed to destroy shader module '%s': %s", m.Name, err.Error())
		}
	}
	for _, h := range r.retired {
		if err := r.ops.DestroyShaderModule(h); err != nil {
			core.LogError("failed to destroy retired shader module: %s", err.Error())
		}
	}
	r.modules = make(map[string]*Module)
	r.retired = nil
	return nil
}

func validateByteCode(name string, code []byte) error {
	if len(code) < 4 || len(code)%4 != 0 {
		return fmt.Errorf("shader '%s' is not valid byte code (%d bytes)", name, len(code))
	}
	if binary.LittleEndian.Uint32(code) != spirvMagic {
		return fmt.Errorf("shader '%s' is not precompiled byte code; source text is not accepted", name)
	}
	return nil
}
