package audit

import (
	"strconv"
	"time"

	"github.com/artifexhq/artifex/domain/artifact"
)

// observed flattens the auditable fields of an artifact into one map:
// core metadata, custom properties, and the content facet. Keys never
// collide because custom property names are validated against the core
// names at write time.
func observed(a *artifact.Artifact) map[string]string {
	m := map[string]string{
		"name":        a.Name,
		"description": a.Description,
	}
	if a.Version != "" {
		m["version"] = a.Version
	}
	for _, p := range a.Properties {
		m[p.Name] = p.Value
	}
	if a.Document != nil {
		m["contentType"] = a.Document.ContentType
		m["contentSize"] = strconv.FormatInt(a.Document.ContentSize, 10)
		m["contentHash"] = a.Document.ContentHash
	}
	return m
}

// CreationEntry builds the artifact:add entry: every observable field is
// recorded as added, and initial classifiers as classifiers_added.
func CreationEntry(a *artifact.Artifact, who string, when time.Time) *Entry {
	e := &Entry{
		ArtifactUUID: a.UUID,
		Type:         TypeArtifactAdd,
		Who:          who,
		When:         when,
	}
	if added := observed(a); len(added) > 0 {
		e.Items = append(e.Items, Item{Type: ItemPropertyAdded, Properties: added})
	}
	if len(a.Classifiers) > 0 {
		cls := make(map[string]string, len(a.Classifiers))
		for _, c := range a.Classifiers {
			cls[c] = c
		}
		e.Items = append(e.Items, Item{Type: ItemClassifiersAdded, Properties: cls})
	}
	return e
}

// DiffEntry builds the artifact:update entry from before/after snapshots.
// Returns nil when nothing observable changed.
func DiffEntry(before, after *artifact.Artifact, who string, when time.Time) *Entry {
	old, now := observed(before), observed(after)

	added := map[string]string{}
	changed := map[string]string{}
	removed := map[string]string{}
	for k, v := range now {
		ov, ok := old[k]
		switch {
		case !ok:
			added[k] = v
		case ov != v:
			changed[k] = v
		}
	}
	for k := range old {
		if _, ok := now[k]; !ok {
			removed[k] = ""
		}
	}

	clsAdded := map[string]string{}
	clsRemoved := map[string]string{}
	oldCls := toSet(before.Classifiers)
	newCls := toSet(after.Classifiers)
	for c := range newCls {
		if !oldCls[c] {
			clsAdded[c] = c
		}
	}
	for c := range oldCls {
		if !newCls[c] {
			clsRemoved[c] = c
		}
	}

	e := &Entry{
		ArtifactUUID: after.UUID,
		Type:         TypeArtifactUpdate,
		Who:          who,
		When:         when,
	}
	for _, it := range []struct {
		typ   string
		props map[string]string
	}{
		{ItemPropertyAdded, added},
		{ItemPropertyChanged, changed},
		{ItemPropertyRemoved, removed},
		{ItemClassifiersAdded, clsAdded},
		{ItemClassifiersRemoved, clsRemoved},
	} {
		if len(it.props) > 0 {
			e.Items = append(e.Items, Item{Type: it.typ, Properties: it.props})
		}
	}
	if len(e.Items) == 0 {
		return nil
	}
	return e
}

// DeletionEntry builds the artifact:delete entry. Deletion records the
// event only, not a field inventory.
func DeletionEntry(a *artifact.Artifact, who string, when time.Time) *Entry {
	return &Entry{
		ArtifactUUID: a.UUID,
		Type:         TypeArtifactDelete,
		Who:          who,
		When:         when,
	}
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
