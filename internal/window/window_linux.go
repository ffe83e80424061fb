//go:build linux

package window

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/Xutil.h>
#include <X11/Xatom.h>
#include <stdlib.h>
#include <string.h>
#include <strings.h>

#define ONTOP_OK 0
#define ONTOP_NO_DISPLAY 1
#define ONTOP_NOT_FOUND 2

#define NET_WM_STATE_REMOVE 0
#define NET_WM_STATE_ADD 1

static int classMatches(Display* dpy, Window w, const char* match) {
    XClassHint hint;
    hint.res_name = NULL;
    hint.res_class = NULL;
    if (!XGetClassHint(dpy, w, &hint)) return 0;

    int ok = (hint.res_name && strcasecmp(hint.res_name, match) == 0) ||
             (hint.res_class && strcasecmp(hint.res_class, match) == 0);

    if (hint.res_name) XFree(hint.res_name);
    if (hint.res_class) XFree(hint.res_class);
    return ok;
}

// setOnTop adds or removes _NET_WM_STATE_ABOVE on every window whose
// WM_CLASS matches. The window manager owns the state, so changes go
// through a root-window client message per EWMH.
static int setOnTop(const char* match, int on) {
    Display* dpy = XOpenDisplay(NULL);
    if (dpy == NULL) return ONTOP_NO_DISPLAY;

    Atom clientList = XInternAtom(dpy, "_NET_CLIENT_LIST", True);
    Atom wmState = XInternAtom(dpy, "_NET_WM_STATE", False);
    Atom wmAbove = XInternAtom(dpy, "_NET_WM_STATE_ABOVE", False);

    Window root = DefaultRootWindow(dpy);

    Atom actualType;
    int actualFormat;
    unsigned long count, bytesAfter;
    unsigned char* data = NULL;

    int found = 0;
    if (clientList != None &&
        XGetWindowProperty(dpy, root, clientList, 0, 4096, False, XA_WINDOW,
                           &actualType, &actualFormat, &count, &bytesAfter, &data) == Success &&
        data != NULL) {
        Window* wins = (Window*)data;
        unsigned long i;
        for (i = 0; i < count; i++) {
            if (!classMatches(dpy, wins[i], match)) continue;

            XEvent ev;
            memset(&ev, 0, sizeof(ev));
            ev.xclient.type = ClientMessage;
            ev.xclient.window = wins[i];
            ev.xclient.message_type = wmState;
            ev.xclient.format = 32;
            ev.xclient.data.l[0] = on ? NET_WM_STATE_ADD : NET_WM_STATE_REMOVE;
            ev.xclient.data.l[1] = wmAbove;
            ev.xclient.data.l[2] = 0;
            ev.xclient.data.l[3] = 1;

            XSendEvent(dpy, root, False,
                       SubstructureRedirectMask | SubstructureNotifyMask, &ev);
            found = 1;
        }
        XFree(data);
    }

    XSync(dpy, False);
    XCloseDisplay(dpy);

    return found ? ONTOP_OK : ONTOP_NOT_FOUND;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/rs/zerolog"
)

type x11Manager struct {
	match string
	log   zerolog.Logger
}

// New creates a Manager that drives the host window through EWMH
// hints, matching windows by WM_CLASS.
func New(match string, log zerolog.Logger) Manager {
	return &x11Manager{match: match, log: log}
}

func (m *x11Manager) SetAlwaysOnTop(on bool) error {
	cMatch := C.CString(m.match)
	defer C.free(unsafe.Pointer(cMatch))

	flag := C.int(0)
	if on {
		flag = C.int(1)
	}

	switch C.setOnTop(cMatch, flag) {
	case C.ONTOP_NO_DISPLAY:
		return fmt.Errorf("cannot open X display")
	case C.ONTOP_NOT_FOUND:
		return fmt.Errorf("no window matching class %q", m.match)
	}

	m.log.Debug().Bool("on", on).Str("match", m.match).Msg("Applied always-on-top")
	return nil
}

func (m *x11Manager) Available() (bool, string) {
	return true, ""
}
