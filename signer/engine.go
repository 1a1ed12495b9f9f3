/*
 * Copyright (c) 2024 Johan Stenstam, johan.stenstam@internetstiftelsen.se
 */
package signer

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// EngineConfig is the configuration an Engine is built from: where
// tools live, where the zone list and per-zone temp files live, how
// many workers to run, the command socket path, and the notify command.
type EngineConfig struct {
	ToolDir        string
	ZoneWorkDir    string
	ZoneListFile   string
	SocketPath     string
	NumWorkers     int
	NotifyCommand  string
	EngineCfgFile  string // passed to signer/auditor tools via -c
}

// Engine is the singleton coordinating the task queue, the worker
// pool, the zones map, and the command socket. Every operator command
// is processed under mu, serializing it against every other command
// and against any Engine-level scheduling decision (see the design
// notes on replacing global mutable state with one owned handle).
type Engine struct {
	mu sync.Mutex

	cfg      EngineConfig
	zones    cmap.ConcurrentMap[string, *Zone]
	zoneList *ZoneList
	queue    *TaskQueue
	pool     *WorkerPool
	listener *commandListener

	verbosity int
}

// NewEngine constructs an Engine from cfg. It does not yet load the
// zone list or start the worker pool; call ReadZoneList then Start.
func NewEngine(cfg EngineConfig) *Engine {
	ToolDir = cfg.ToolDir
	EngineConfigFile = cfg.EngineCfgFile
	NotifyCommand = cfg.NotifyCommand

	queue := NewTaskQueue()
	return &Engine{
		cfg:   cfg,
		zones: cmap.New[*Zone](),
		queue: queue,
		pool:  NewWorkerPool(queue),
	}
}

func (e *Engine) Lock()   { e.mu.Lock() }
func (e *Engine) Unlock() { e.mu.Unlock() }

// Start launches the worker pool and the command socket listener.
func (e *Engine) Start() error {
	e.pool.Start(e.cfg.NumWorkers)

	l, err := newCommandListener(e.cfg.SocketPath, e.HandleCommand)
	if err != nil {
		return err
	}
	e.listener = l
	go l.Serve()
	return nil
}

// Stop tears down the worker pool and the command socket, mirroring
// the source engine's stop_engine: stop workers, close and unlink the
// socket.
func (e *Engine) Stop() {
	if e.pool != nil {
		e.pool.Stop()
	}
	if e.listener != nil {
		e.listener.Close()
	}
}

// ReadZoneList (re-)loads the zone list from cfg.ZoneListFile, merges
// it against the previously active list, and applies the add/remove/
// update deltas. Returns a human-readable status line, as the "update"
// command's response.
func (e *Engine) ReadZoneList() (string, error) {
	newList, err := ReadZoneListFile(e.cfg.ZoneListFile)
	if err != nil {
		return "", err
	}

	removed, added, updated := newList.Merge(e.zoneList)
	e.zoneList = newList

	for _, name := range removed {
		e.removeZoneLocked(name)
	}
	for _, name := range added {
		e.addZoneLocked(name)
	}
	for _, name := range updated {
		e.updateZoneLocked(name)
	}

	return fmt.Sprintf("zone list reloaded: %d removed, %d added, %d updated",
		len(removed), len(added), len(updated)), nil
}

func (e *Engine) addZoneLocked(name string) {
	entry, ok := e.zoneList.GetEntry(name)
	if !ok {
		return
	}
	zd := NewZone(entry, e.cfg.ZoneWorkDir)
	e.zones.Set(name, zd)

	if err := zd.ReadConfig(); err != nil {
		log.Printf("engine: zone %s: initial config read failed: %v", name, err)
		return
	}

	zd.Lock()
	zd.Action = Resign
	zd.Scheduled = time.Now()
	zd.Unlock()

	e.queue.Lock()
	e.queue.Add(&Task{When: time.Now().Unix(), Kind: SignZone, Zone: zd, Replace: true,
		RepeatInterval: zd.Config.SignaturesResignTime})
	e.queue.Unlock()
	e.pool.Notify()
}

func (e *Engine) removeZoneLocked(name string) {
	zd, ok := e.zones.Get(name)
	e.zones.Remove(name)
	if !ok {
		return
	}

	e.queue.Lock()
	kept := e.queue.tasks[:0]
	for _, t := range e.queue.tasks {
		if t.Zone != zd {
			kept = append(kept, t)
		}
	}
	e.queue.tasks = kept
	e.queue.Unlock()
}

func (e *Engine) updateZoneLocked(name string) {
	zd, ok := e.zones.Get(name)
	if !ok {
		e.addZoneLocked(name)
		return
	}

	zd.Lock()
	oldConfig := zd.Config
	err := zd.readConfigLocked()
	if err != nil {
		log.Printf("engine: zone %s: config re-read failed, keeping previous policy: %v", name, err)
		zd.Config = oldConfig
		zd.Unlock()
		return
	}

	action := zd.Config.Compare(oldConfig)
	zd.Action = action
	zd.Unlock()

	e.scheduleZone(zd, action)
}

// scheduleZone applies a freshly computed Action to zd's schedule:
// RESCHEDULE recomputes the next firing time from the (possibly
// changed) resign interval; anything RESORT or higher runs immediately.
func (e *Engine) scheduleZone(zd *Zone, action Action) {
	var when int64
	switch {
	case action >= Resort:
		when = time.Now().Unix()
	case action == Reschedule:
		when = time.Now().Unix() + zd.Config.SignaturesResignTime
	default:
		return
	}

	zd.Lock()
	zd.Scheduled = time.Unix(when, 0)
	zd.Unlock()

	e.queue.Lock()
	e.queue.Add(&Task{When: when, Kind: SignZone, Zone: zd, Replace: true,
		RepeatInterval: zd.Config.SignaturesResignTime})
	e.queue.Unlock()
	e.pool.Notify()
}

// ZoneStatusAll concatenates every zone's status line, for the "zones"
// command. Zones are listed by name against the authoritative zone
// list (rather than the zones map's own Keys()) and sorted so repeated
// runs of the command are stable.
func (e *Engine) ZoneStatusAll() string {
	names := e.zones.Keys()
	if e.zoneList != nil {
		names = e.zoneList.Names()
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		zd, ok := e.zones.Get(name)
		if !ok {
			continue
		}
		b.WriteString(zd.Status())
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "No zones configured.\n"
	}
	return b.String()
}
