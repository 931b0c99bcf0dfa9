// Object file lifecycle and event insertion.
//
// An ObjectFile is a handle on one object type's directory. Open takes the
// write lock and loads the header and dictionaries; blocks are read lazily
// the first time an insert or scan touches them and stay cached until Close.
// Close persists the dictionaries and header and then releases the lock.
//
// A handle is not safe for concurrent use. Callers that share one across
// goroutines must serialise access themselves.
package sky

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ObjectFile stores the paths of one object type.
type ObjectFile struct {
	name       string
	path       string
	config     Config
	log        *slog.Logger
	meta       *Meta
	header     *headerIndex
	actions    *Dictionary
	properties *Dictionary
	lock       *fileLock
	blocks     map[uint32]*Block
	open       bool
	fault      error // set once the handle is unusable
}

func newObjectFile(dir, name string, config Config) *ObjectFile {
	path := filepath.Join(dir, name)
	log := config.Logger.With("object_file", name)
	return &ObjectFile{
		name:       name,
		path:       path,
		config:     config,
		log:        log,
		actions:    newDictionary(KindActions, filepath.Join(path, KindActions)),
		properties: newDictionary(KindProperties, filepath.Join(path, KindProperties)),
		lock:       newFileLock(filepath.Join(path, lockFileName), log),
	}
}

// Name returns the object type name.
func (of *ObjectFile) Name() string { return of.name }

// Path returns the object file's directory.
func (of *ObjectFile) Path() string { return of.path }

// IsOpen reports whether Open succeeded and Close has not been called.
func (of *ObjectFile) IsOpen() bool { return of.open }

// Actions returns the action dictionary. It is empty until Open.
func (of *ObjectFile) Actions() *Dictionary { return of.actions }

// Properties returns the property dictionary. It is empty until Open.
func (of *ObjectFile) Properties() *Dictionary { return of.properties }

// Meta returns the object file's metadata, or nil before Open.
func (of *ObjectFile) Meta() *Meta { return of.meta }

// BlockInfos returns a copy of the header index in object-id order.
func (of *ObjectFile) BlockInfos() []BlockInfo {
	if of.header == nil {
		return nil
	}
	return slices.Clone(of.header.infos)
}

// Open locks the object file and loads its header and dictionaries,
// creating the directory on first use. It fails with ErrLockConflict if
// another live process holds the lock.
func (of *ObjectFile) Open() error {
	if of.fault != nil {
		return of.fault
	}
	if of.open {
		return ErrAlreadyOpen
	}

	if err := os.MkdirAll(of.path, 0755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIO, of.path, err)
	}
	if err := of.lock.Acquire(); err != nil {
		return fmt.Errorf("open %s: lock: %w", of.name, err)
	}
	if err := of.load(); err != nil {
		if rerr := of.lock.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return fmt.Errorf("open %s: %w", of.name, err)
	}

	of.blocks = make(map[uint32]*Block)
	of.open = true
	of.log.Debug("opened", "blocks", len(of.header.infos),
		"actions", of.actions.Len(), "properties", of.properties.Len())
	return nil
}

func (of *ObjectFile) load() error {
	meta, err := loadMeta(of.path)
	if err != nil {
		return err
	}
	if meta == nil {
		meta = newMeta(of.config)
		if err := meta.persist(of.path, of.config.SyncWrites); err != nil {
			return err
		}
	}
	of.meta = meta

	if of.header, err = loadHeader(of.path); err != nil {
		return err
	}
	if err := of.actions.load(); err != nil {
		return err
	}
	if err := of.properties.load(); err != nil {
		return err
	}
	return of.sweep()
}

// sweep removes leftovers of an interrupted write: temp files, and block
// files the header no longer references (a split that wrote its children
// but crashed before the header, or a parent whose removal failed).
func (of *ObjectFile) sweep() error {
	entries, err := os.ReadDir(of.path)
	if err != nil {
		return fmt.Errorf("%w: read dir: %w", ErrIO, err)
	}

	live := make(map[string]bool, len(of.header.infos))
	for _, info := range of.header.infos {
		live[info.filename()] = true
	}
	for _, e := range entries {
		name := e.Name()
		orphan := strings.HasSuffix(name, ".tmp") ||
			(strings.HasSuffix(name, ".block") && !live[name])
		if !orphan {
			continue
		}
		of.log.Info("removing orphaned file", "file", name)
		if err := os.Remove(filepath.Join(of.path, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove %s: %w", ErrIO, name, err)
		}
	}
	return nil
}

// Close persists dictionary and header changes, drops cached blocks and
// releases the lock. The lock is released even if persisting fails; the
// returned error then reports both. A handle poisoned by ErrCorruptState
// skips persisting so suspect state never reaches disk.
func (of *ObjectFile) Close() error {
	if !of.open {
		return ErrClosed
	}

	var errs []error
	if of.fault == nil {
		if of.actions.Dirty() {
			errs = append(errs, of.actions.persist(of.config.SyncWrites))
		}
		if of.properties.Dirty() {
			errs = append(errs, of.properties.persist(of.config.SyncWrites))
		}
		if of.header.dirty {
			errs = append(errs, of.header.persist(of.path, of.config.SyncWrites))
		}
	}
	if err := of.lock.Release(); err != nil {
		errs = append(errs, err)
		of.poison(err)
	}

	of.blocks = nil
	of.open = false
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close %s: %w", of.name, err)
	}
	return nil
}

// poison marks the handle unusable if err is one of the fatal classes.
func (of *ObjectFile) poison(err error) error {
	if errors.Is(err, ErrCorruptState) || errors.Is(err, ErrLockViolation) {
		if of.fault == nil {
			of.fault = err
		}
	}
	return err
}

func (of *ObjectFile) check() error {
	if of.fault != nil {
		return of.fault
	}
	if !of.open {
		return ErrClosed
	}
	return nil
}

// block returns the cached block for info, reading it from disk on first
// use. A header entry whose file is missing is ErrCorruptState.
func (of *ObjectFile) block(info BlockInfo) (*Block, error) {
	if b, ok := of.blocks[info.ID]; ok {
		return b, nil
	}

	data, err := os.ReadFile(filepath.Join(of.path, info.filename()))
	if os.IsNotExist(err) {
		return nil, of.poison(fmt.Errorf("%w: block %d [%d, %d) has no file",
			ErrCorruptState, info.ID, info.Start, info.End))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read block %d: %w", ErrIO, info.ID, err)
	}
	b, err := decodeBlock(data, info, of.meta.Algorithm)
	if err != nil {
		return nil, of.poison(err)
	}
	of.blocks[info.ID] = b
	return b, nil
}

// AddEvent stores e in the path for e.ObjectID.
//
// The block whose range holds the id is found through the header, or
// created over a fresh id window if none does. The event is inserted in
// timestamp order and, if the block has grown past Config.MaxBlockSize, the
// block is split and the header updated. Every block written is persisted
// before the header, so the header never points at a missing file.
//
// Action and property ids must already be registered with FindOrCreate;
// AddEvent never touches the dictionaries. If persisting fails the error
// wraps ErrIO, the header and block cache are restored to what is on disk
// and the event is not stored.
func (of *ObjectFile) AddEvent(e Event) error {
	if err := of.check(); err != nil {
		return err
	}
	if e.ObjectID == math.MaxUint64 {
		return fmt.Errorf("%w: %d", ErrInvalidObjectID, e.ObjectID)
	}
	if err := e.validate(); err != nil {
		return err
	}
	objectID := e.ObjectID
	e.Properties = slices.Clone(e.Properties)

	saved := of.header.snapshot()
	info, ok := of.header.find(objectID)
	var b *Block
	if ok {
		var err error
		if b, err = of.block(info); err != nil {
			return err
		}
	} else {
		start, end := of.header.window(objectID, of.meta.RangeWidth)
		info = BlockInfo{Start: start, End: end, ID: of.header.allocate()}
		if err := of.header.insert(info); err != nil {
			return of.poison(err)
		}
		b = newBlock(info)
		of.blocks[info.ID] = b
		of.log.Debug("created block", "block", info.ID, "start", start, "end", end)
	}

	if err := b.insert(objectID, e); err != nil {
		return of.poison(err)
	}

	children := b.split(of.config.MaxBlockSize, of.header.allocate)
	if len(children) > 1 {
		infos := make([]BlockInfo, len(children))
		for i, c := range children {
			infos[i] = c.info
		}
		if err := of.header.replace(&info, infos); err != nil {
			return of.poison(err)
		}
		delete(of.blocks, info.ID)
		for _, c := range children {
			of.blocks[c.info.ID] = c
		}
		of.log.Debug("split block", "block", info.ID, "children", len(children))
	} else if b.size > of.config.MaxBlockSize {
		of.log.Warn("block over size limit with a single path",
			"block", info.ID, "object", objectID, "size", b.size)
	}

	for _, c := range children {
		if err := of.writeBlock(c); err != nil {
			of.rollback(saved, info, children)
			return err
		}
	}
	if of.header.dirty {
		if err := of.header.persist(of.path, of.config.SyncWrites); err != nil {
			of.rollback(saved, info, children)
			return err
		}
	}
	if len(children) > 1 {
		err := os.Remove(filepath.Join(of.path, info.filename()))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove superseded block %d: %w", ErrIO, info.ID, err)
		}
	}
	return nil
}

// rollback undoes a failed AddEvent so memory matches disk again. Blocks
// the insert touched are evicted and reread on next use. Files written for
// blocks the restored header does not name are removed on a best-effort
// basis; Open sweeps whatever is left.
func (of *ObjectFile) rollback(saved headerSnapshot, info BlockInfo, children []*Block) {
	of.header.restore(saved)
	delete(of.blocks, info.ID)
	for _, c := range children {
		delete(of.blocks, c.info.ID)
		if of.header.has(c.info) {
			continue
		}
		err := os.Remove(filepath.Join(of.path, c.info.filename()))
		if err != nil && !os.IsNotExist(err) {
			of.log.Warn("unable to remove unreferenced block", "block", c.info.ID, "error", err)
		}
	}
	of.log.Debug("rolled back insert", "block", info.ID)
}

func (of *ObjectFile) writeBlock(b *Block) error {
	data := b.encode(of.meta.Algorithm, of.meta.Compress)
	if err := writeFile(filepath.Join(of.path, b.info.filename()), data, of.config.SyncWrites); err != nil {
		return fmt.Errorf("persist block %d: %w", b.info.ID, err)
	}
	return nil
}

// blockAt returns the i-th block in object-id order.
func (of *ObjectFile) blockAt(i int) (*Block, error) {
	return of.block(of.header.infos[i])
}

// blockCount returns the number of blocks in the header.
func (of *ObjectFile) blockCount() int {
	return len(of.header.infos)
}
