// Package handler interprets command lines against the store.
package handler

import (
	"strconv"
	"strings"

	"github.com/VoolFI71/fast-kv/internal/parser"
	"github.com/VoolFI71/fast-kv/internal/stats"
	"github.com/VoolFI71/fast-kv/internal/storage"
)

const (
	replyOK       = "OK\n"
	replyNotFound = "NOT_FOUND\n"
	replyDeleted  = "DELETED\n"
	replyCleared  = "CLEARED\n"
	replyEmpty    = "EMPTY\n"
	replyTrue     = "1\n"
	replyFalse    = "0\n"

	errEmptyCommand   = "ERROR empty command\n"
	errUnknownCommand = "ERROR unknown command\n"
	errNotInteger     = "ERROR value is not integer\n"
)

// Handler executes one command line per call. It is safe for concurrent use;
// all shared state lives in the store and the stats counters.
type Handler struct {
	st    *storage.Store
	stats *stats.Stats
}

func New(st *storage.Store, s *stats.Stats) *Handler {
	return &Handler{st: st, stats: s}
}

// Handle runs line and returns the newline-terminated reply. It never fails:
// protocol errors come back as ERROR replies and are counted.
func (h *Handler) Handle(line string) string {
	args := parser.Split(line)
	if len(args) == 0 {
		h.stats.IncError()
		return errEmptyCommand
	}

	h.stats.IncCommand()

	switch args[0] {
	case "SET":
		if len(args) < 3 {
			return h.usage("SET key value")
		}
		h.st.Set(args[1], strings.Join(args[2:], " "))
		return replyOK

	case "GET":
		if len(args) != 2 {
			return h.usage("GET key")
		}
		value, ok := h.st.Get(args[1])
		if !ok {
			return replyNotFound
		}
		return "VALUE " + value + "\n"

	case "DEL":
		if len(args) != 2 {
			return h.usage("DEL key")
		}
		if !h.st.Del(args[1]) {
			return replyNotFound
		}
		return replyDeleted

	case "EXISTS":
		if len(args) != 2 {
			return h.usage("EXISTS key")
		}
		if h.st.Exists(args[1]) {
			return replyTrue
		}
		return replyFalse

	case "COUNT":
		if len(args) != 1 {
			return h.usage("COUNT")
		}
		return strconv.Itoa(h.st.Count()) + "\n"

	case "KEYS":
		if len(args) != 1 {
			return h.usage("KEYS")
		}
		keys := h.st.Keys()
		if len(keys) == 0 {
			return replyEmpty
		}
		return "KEYS " + strings.Join(keys, " ") + "\n"

	case "CLEAR":
		if len(args) != 1 {
			return h.usage("CLEAR")
		}
		h.st.Clear()
		return replyCleared

	case "INCR":
		if len(args) != 2 {
			return h.usage("INCR key")
		}
		value, err := h.st.Incr(args[1])
		if err != nil {
			h.stats.IncError()
			return errNotInteger
		}
		return "VALUE " + strconv.FormatInt(value, 10) + "\n"

	case "STATS":
		if len(args) != 1 {
			return h.usage("STATS")
		}
		return h.stats.Render() + "\n"
	}

	h.stats.IncError()
	return errUnknownCommand
}

func (h *Handler) usage(synopsis string) string {
	h.stats.IncError()
	return "ERROR usage: " + synopsis + "\n"
}
