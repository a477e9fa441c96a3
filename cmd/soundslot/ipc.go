/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the soundslot project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"soundslot/internal/board"
	"soundslot/pkg/spec"

	"github.com/rs/zerolog"
)

// ===============================
// Connections
// ===============================

// eventBacklog bounds the events queued for a slow owner.
const eventBacklog = 64

// peer serializes writes from the command loop and the event sink. Events are
// queued and written by their own goroutine so a stalled reader never blocks
// the playback worker.
type peer struct {
	conn   net.Conn
	mu     sync.Mutex
	events chan string
	done   chan struct{}
}

func newPeer(c net.Conn) *peer {
	p := &peer{conn: c, events: make(chan string, eventBacklog), done: make(chan struct{})}
	go p.pump()
	return p
}

// push queues an event line, dropping it when the backlog is full.
func (p *peer) push(line string) bool {
	select {
	case p.events <- line:
		return true
	default:
		return false
	}
}

func (p *peer) pump() {
	for {
		select {
		case <-p.done:
			return
		case line := <-p.events:
			if err := p.send(line); err != nil {
				return
			}
		}
	}
}

func (p *peer) close() {
	close(p.done)
	p.conn.Close()
}

func (p *peer) send(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.conn.Write([]byte(line + "\n"))
	return err
}

func (p *peer) sendJSON(v any) error {
	j, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.send(string(j))
}

// ===============================
// IPC Server
// ===============================

// ipcServer exposes a board on a line protocol. The first connection that
// issues a control command owns the board until it disconnects; the others
// are read-only observers.
type ipcServer struct {
	board *board.Board
	log   zerolog.Logger

	controlMu sync.Mutex
	owner     *peer
}

func newIPCServer(b *board.Board, log zerolog.Logger) *ipcServer {
	return &ipcServer{board: b, log: log}
}

func (s *ipcServer) isOwner(p *peer) bool {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	return s.owner == p
}

func (s *ipcServer) claimOwner(p *peer) bool {
	s.controlMu.Lock()
	defer s.controlMu.Unlock()
	if s.owner == nil {
		s.owner = p
		s.board.SetSink(func(ev board.Event) {
			j, _ := json.Marshal(ev)
			if !p.push("EVENT " + string(j)) {
				s.log.Debug().Str("event", ev.Type).Msg("event backlog full, dropped")
			}
		})
		return true
	}
	return s.owner == p
}

func (s *ipcServer) releaseOwner(p *peer) {
	s.controlMu.Lock()
	released := s.owner == p
	if released {
		s.owner = nil
	}
	s.controlMu.Unlock()

	if released {
		s.board.SetSink(nil)
		s.board.Stop()
	}
}

// serve accepts connections until ctx is done.
func (s *ipcServer) serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Warn().Err(err).Msg("accept")
			continue
		}
		go s.handleConn(c)
	}
}

func argInt(args []string, idx int) (int, bool) {
	if len(args) <= idx {
		return 0, false
	}
	v, err := strconv.Atoi(args[idx])
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *ipcServer) handleConn(c net.Conn) {
	p := newPeer(c)
	defer func() {
		s.releaseOwner(p)
		p.close()
	}()

	sc := bufio.NewScanner(c)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		// verb + raw argument (names may contain spaces)
		parts := strings.SplitN(line, " ", 2)
		cmd := strings.ToUpper(parts[0])
		raw := ""
		if len(parts) == 2 {
			raw = strings.TrimSpace(parts[1])
		}
		args := strings.Fields(raw)

		if s.readOnly(p, cmd) {
			continue
		}

		if !s.claimOwner(p) {
			p.send("ERR CONTROL_LOCKED")
			continue
		}
		s.control(p, cmd, raw, args)
	}
}

// readOnly answers commands any connection may issue. It reports false for
// control commands.
func (s *ipcServer) readOnly(p *peer, cmd string) bool {
	switch cmd {
	case "ABOUT":
		p.send(fmt.Sprintf("%s V.%d.%d", spec.AppName, spec.VersionMajor, spec.VersionMinor))

	case "PING":
		p.send("Pong")

	case "WHOAMI":
		if s.isOwner(p) {
			p.send("OWNER")
		} else {
			p.send("OBSERVER")
		}

	case "STATUS":
		snap := s.board.Snapshot()
		resp := map[string]any{
			"state":  snap.State.String(),
			"offset": s.board.Offset(),
		}
		if snap.Active != nil {
			resp["sound"] = snap.Active.Name()
		}
		p.sendJSON(resp)

	case "LIST":
		p.sendJSON(s.board.All())

	case "ROWS":
		p.sendJSON(s.board.Visible())

	default:
		return false
	}
	return true
}

func (s *ipcServer) control(p *peer, cmd, raw string, args []string) {
	switch cmd {
	case "TAP":
		row, ok := argInt(args, 0)
		if !ok {
			p.send("ERR ARG")
			return
		}
		if err := s.board.Tap(row); err != nil {
			p.send("ERR ROW_RANGE")
			return
		}
		p.send("OK")

	case "STOP":
		s.board.Stop()
		p.send("Stopped")

	case "SCROLL":
		offset, ok := argInt(args, 0)
		if !ok {
			p.send("ERR ARG")
			return
		}
		p.send(fmt.Sprintf("OK %d", s.board.Scroll(offset)))

	case "DETAILS":
		switch strings.ToUpper(raw) {
		case "ON":
			s.board.SetDetails(true)
		case "OFF":
			s.board.SetDetails(false)
		default:
			p.send("ERR ARG")
			return
		}
		p.send("OK")

	case "REMOVE":
		if len(args) == 0 {
			p.send("ERR ARG")
			return
		}
		rows := make([]int, 0, len(args))
		for i := range args {
			row, ok := argInt(args, i)
			if !ok {
				p.send("ERR ARG")
				return
			}
			rows = append(rows, row)
		}
		if err := s.board.Remove(rows...); err != nil {
			s.fail(p, err)
			return
		}
		p.send("OK")

	case "MOVE":
		from, ok1 := argInt(args, 0)
		to, ok2 := argInt(args, 1)
		if !ok1 || !ok2 {
			p.send("ERR ARG")
			return
		}
		if err := s.board.Move(from, to); err != nil {
			s.fail(p, err)
			return
		}
		p.send("OK")

	case "RENAME":
		row, ok := argInt(args, 0)
		name := strings.TrimSpace(strings.TrimPrefix(raw, firstField(args)))
		if !ok || name == "" {
			p.send("ERR ARG")
			return
		}
		got, err := s.board.Rename(row, name)
		if err != nil {
			s.fail(p, err)
			return
		}
		p.send("OK " + got)

	case "COPY":
		row, ok := argInt(args, 0)
		if !ok {
			p.send("ERR ARG")
			return
		}
		it, err := s.board.Copy(row)
		if err != nil {
			s.fail(p, err)
			return
		}
		p.send("OK " + it.Name())

	case "ADD":
		if raw == "" {
			p.send("ERR ARG")
			return
		}
		it, err := s.board.Add(raw)
		if err != nil {
			s.fail(p, err)
			return
		}
		p.send("OK " + it.Name())

	default:
		p.send("ERR UNKNOWN")
	}
}

func (s *ipcServer) fail(p *peer, err error) {
	s.log.Warn().Err(err).Msg("command failed")
	if errors.Is(err, board.ErrNoRow) {
		p.send("ERR ROW_RANGE")
		return
	}
	p.send("ERR " + err.Error())
}

func firstField(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
