// Package messages holds the operator-facing texts of the runtime and the
// administration commands.
package messages

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a message; it doubles as the printf format of the
// English text.
type Key = string

const (
	PermissionDenied  Key = "script %s is not allowed to call %s"
	ScriptLoaded      Key = "script %s loaded with %d handlers"
	ScriptUnloaded    Key = "script %s unloaded"
	ScriptLoadFailed  Key = "script %s could not be loaded: %s"
	HandlerFailed     Key = "handler %s of script %s failed: %s"
	EventDispatched   Key = "event %s dispatched to %d scripts"
	PolicyCreated     Key = "policy %s created for %s"
	PolicyDeleted     Key = "policy %s deleted"
	PolicyNotFound    Key = "policy %s does not exist"
	FunctionGranted   Key = "%s granted to %s"
	FunctionRevoked   Key = "%s revoked from %s"
	ModeChanged       Key = "policy %s is now in %s mode"
	VariableAdded     Key = "variable %s of %s is now persistent"
	VariableRemoved   Key = "variable %s of %s is no longer persistent"
	NothingChanged    Key = "nothing changed"
	PermissionAllowed Key = "%s may call %s"
	PermissionRefused Key = "%s may not call %s"
)

var translations = map[language.Tag]map[Key]string{
	language.German: {
		PermissionDenied:  "Skript %s darf %s nicht aufrufen",
		ScriptLoaded:      "Skript %s mit %d Handlern geladen",
		ScriptUnloaded:    "Skript %s entladen",
		ScriptLoadFailed:  "Skript %s konnte nicht geladen werden: %s",
		HandlerFailed:     "Handler %s von Skript %s fehlgeschlagen: %s",
		EventDispatched:   "Ereignis %s an %d Skripte verteilt",
		PolicyCreated:     "Richtlinie %s für %s angelegt",
		PolicyDeleted:     "Richtlinie %s gelöscht",
		PolicyNotFound:    "Richtlinie %s existiert nicht",
		FunctionGranted:   "%s für %s erlaubt",
		FunctionRevoked:   "%s für %s entzogen",
		ModeChanged:       "Richtlinie %s ist jetzt im Modus %s",
		VariableAdded:     "Variable %s von %s ist jetzt persistent",
		VariableRemoved:   "Variable %s von %s ist nicht mehr persistent",
		NothingChanged:    "keine Änderung",
		PermissionAllowed: "%s darf %s aufrufen",
		PermissionRefused: "%s darf %s nicht aufrufen",
	},
}

var keys = []Key{
	PermissionDenied, ScriptLoaded, ScriptUnloaded, ScriptLoadFailed,
	HandlerFailed, EventDispatched, PolicyCreated, PolicyDeleted, PolicyNotFound,
	FunctionGranted, FunctionRevoked, ModeChanged, VariableAdded, VariableRemoved,
	NothingChanged, PermissionAllowed, PermissionRefused,
}

// Catalog formats messages in one locale. Unknown locales fall back to
// English.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

func New(locale string) *Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range keys {
		_ = b.SetString(language.English, key, key)
	}
	for tag, texts := range translations {
		for key, text := range texts {
			_ = b.SetString(tag, key, text)
		}
	}

	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	tag, _, confidence := b.Matcher().Match(tag)
	if confidence == language.No {
		tag = language.English
	}

	return &Catalog{tag: tag, printer: message.NewPrinter(tag, message.Catalog(b))}
}

// Language is the matched locale.
func (c *Catalog) Language() language.Tag { return c.tag }

func (c *Catalog) Sprintf(key Key, args ...any) string {
	return c.printer.Sprintf(key, args...)
}
