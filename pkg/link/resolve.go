// Package link implements connection resolution (spec.md §4.G): turning a
// module or system instance's declarative `connections` into concrete
// Links between Ports, including wildcard pattern expansion.
package link

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
	"github.com/davidthor/asdesigner/pkg/tree"
)

// Resolver implements tree.LinkResolver.
type Resolver struct{}

func New() *Resolver { return &Resolver{} }

// Resolve wires instance's declared connections into Links. Node instances
// have no connections and are never passed here (build.go skips them).
func (r *Resolver) Resolve(instance *tree.Instance, registry tree.Registry) error {
	conns, isModule := connectionsOf(instance)

	for _, c := range dedupe(conns) {
		if err := resolveOne(instance, c, isModule); err != nil {
			return err
		}
	}

	return registerExternalPorts(instance)
}

func connectionsOf(instance *tree.Instance) ([]design.Connection, bool) {
	switch instance.Config.Kind {
	case design.KindModule:
		return instance.Config.Module.Connections, true
	case design.KindSystem:
		return instance.Config.System.Connections, false
	default:
		return nil, false
	}
}

// dedupe preserves first occurrence of each (from, to) pair (spec.md §4.G
// step 1 / Testable Property 6). A Connection only carries endpoints, so
// two entries with identical endpoints are indistinguishable from each
// other — there is no way to detect a "contradictory duplicate" beyond
// that, per the spec's own open question; we always treat a repeat as a
// silent no-op.
func dedupe(conns []design.Connection) []design.Connection {
	out := make([]design.Connection, 0, len(conns))
	seen := map[string]bool{}
	for _, c := range conns {
		key := c.From + "\x00" + c.To
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// declaredExternalInterfaces returns instance's own declared boundary
// (a System has none and gets an empty set).
func declaredExternalInterfaces(instance *tree.Instance) design.ExternalInterfaces {
	if instance.Config.Kind != design.KindModule {
		return design.ExternalInterfaces{}
	}
	return instance.Config.Module.ExternalInterfaces
}

// declaredNames lists the names instance declares for dir, sorted for
// deterministic wildcard expansion.
func declaredNames(instance *tree.Instance, dir tree.Direction) []string {
	ei := declaredExternalInterfaces(instance)
	entries := ei.Output
	if dir == tree.DirectionInput {
		entries = ei.Input
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// declaredByName indexes a declared external_interfaces list by name.
func declaredByName(ports []design.Port) map[string]design.Port {
	out := make(map[string]design.Port, len(ports))
	for _, p := range ports {
		out[p.Name] = p
	}
	return out
}

// selfPort returns instance's own boundary port for (dir, name),
// materializing a fresh one with no concrete msg_type yet on first
// reference from a connection — "externally-initiated endpoints that have
// no concrete port yet create a fresh port" (spec.md §4.G step 3). Whether
// the name was actually declared in external_interfaces is checked
// separately, once every connection has been resolved, by
// registerExternalPorts.
func selfPort(instance *tree.Instance, dir tree.Direction, name string) *tree.Port {
	key := tree.PortKey("", dir, name)
	if p, ok := instance.Ports[key]; ok {
		return p
	}
	p := tree.NewPort(name, "", dir, instance.Namespace, "", "")
	instance.Ports[key] = p
	return p
}

// registerExternalPorts cross-checks every boundary port this instance's
// connections materialized against its own declared external_interfaces
// (spec.md §4.G step 4): a name never declared raises [E_EXT_DECL]; a
// declared name whose resolved msg_type conflicts with the interface's own
// declared message_type raises [E_TYPE_MISMATCH].
func registerExternalPorts(instance *tree.Instance) error {
	if instance.Config.Kind != design.KindModule {
		return nil
	}

	declaredIn := declaredByName(instance.Config.Module.ExternalInterfaces.Input)
	declaredOut := declaredByName(instance.Config.Module.ExternalInterfaces.Output)

	keys := make([]string, 0, len(instance.Ports))
	for key := range instance.Ports {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		p := instance.Ports[key]
		declared := declaredOut
		if p.Direction == tree.DirectionInput {
			declared = declaredIn
		}

		decl, ok := declared[p.Name]
		if !ok {
			return errors.New(errors.ErrCodeExternalDecl, fmt.Sprintf("%s is not declared in external_interfaces", p.PortPath()))
		}
		if decl.MessageType != "" && p.MsgType != "" && decl.MessageType != p.MsgType {
			return errors.New(errors.ErrCodeTypeMismatch, fmt.Sprintf("%s declares message type %s in external_interfaces but resolved to %s", p.PortPath(), decl.MessageType, p.MsgType))
		}
	}
	return nil
}

// endpoint is a parsed connection endpoint: either this instance's own
// boundary ("input.NAME" / "output.NAME", isSelf true, ownerTok empty) or a
// child's port ("CHILD.input|output.NAME", isSelf false).
type endpoint struct {
	raw      string
	ownerTok string
	portTok  string
	isSelf   bool
}

func parseEndpoint(raw string) (endpoint, error) {
	tokens := strings.Split(raw, ".")
	switch len(tokens) {
	case 2:
		if tokens[0] != "input" && tokens[0] != "output" {
			return endpoint{}, errors.ValidationError(fmt.Sprintf("malformed connection endpoint %q", raw), nil)
		}
		return endpoint{raw: raw, portTok: tokens[1], isSelf: true}, nil
	case 3:
		return endpoint{raw: raw, ownerTok: tokens[0], portTok: tokens[2]}, nil
	default:
		return endpoint{}, errors.ValidationError(fmt.Sprintf("malformed connection endpoint %q", raw), nil)
	}
}

func isWildcardToken(tok string) bool {
	return tok == "*" || tok == "^" || tok == "+"
}

func (e endpoint) hasWildcard() bool {
	return isWildcardToken(e.ownerTok) || isWildcardToken(e.portTok)
}

func (e endpoint) render(value string) endpoint {
	out := e
	if out.isSelf {
		out.portTok = value
		return out
	}
	if isWildcardToken(out.ownerTok) {
		out.ownerTok = value
	} else {
		out.portTok = value
	}
	return out
}

func connectionType(from, to string) tree.ConnectionType {
	fromSelf := strings.HasPrefix(from, "input.")
	toSelf := strings.HasPrefix(to, "output.")
	switch {
	case fromSelf && toSelf:
		return tree.ConnectionExternal
	case fromSelf:
		return tree.ConnectionExternalToInternal
	case toSelf:
		return tree.ConnectionInternalToExternal
	default:
		return tree.ConnectionInternal
	}
}

func resolveSourcePort(instance *tree.Instance, ep endpoint) (*tree.Port, bool) {
	if ep.isSelf {
		return selfPort(instance, tree.DirectionInput, ep.portTok), true
	}
	child, ok := instance.Children[ep.ownerTok]
	if !ok {
		return nil, false
	}
	p, ok := child.Ports[tree.PortKey("", tree.DirectionOutput, ep.portTok)]
	return p, ok
}

func resolveSinkPort(instance *tree.Instance, ep endpoint) (*tree.Port, bool) {
	if ep.isSelf {
		return selfPort(instance, tree.DirectionOutput, ep.portTok), true
	}
	child, ok := instance.Children[ep.ownerTok]
	if !ok {
		return nil, false
	}
	p, ok := child.Ports[tree.PortKey("", tree.DirectionInput, ep.portTok)]
	return p, ok
}

// wildcardUniverse enumerates the concrete values the wildcard token in ep
// could take, on the given side ("from" or "to").
func wildcardUniverse(instance *tree.Instance, ep endpoint, side string) []string {
	var dir tree.Direction
	if side == "from" {
		dir = tree.DirectionInput
	} else {
		dir = tree.DirectionOutput
	}

	if ep.isSelf {
		return declaredNames(instance, dir)
	}
	if isWildcardToken(ep.ownerTok) {
		names := make([]string, 0, len(instance.Children))
		for _, c := range instance.OrderedChildren() {
			names = append(names, c.Name)
		}
		return names
	}
	child, ok := instance.Children[ep.ownerTok]
	if !ok {
		return nil
	}
	if side == "from" {
		return portNames(child.Ports, tree.DirectionOutput)
	}
	return portNames(child.Ports, tree.DirectionInput)
}

func portNames(ports map[string]*tree.Port, dir tree.Direction) []string {
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		if p.Direction == dir {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

func intersect(a, b []string) []string {
	set := map[string]bool{}
	for _, v := range a {
		set[v] = true
	}
	var out []string
	for _, v := range b {
		if set[v] {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func resolveOne(instance *tree.Instance, c design.Connection, isModule bool) error {
	fromEp, err := parseEndpoint(c.From)
	if err != nil {
		return err
	}
	toEp, err := parseEndpoint(c.To)
	if err != nil {
		return err
	}
	connType := connectionType(c.From, c.To)

	if !fromEp.hasWildcard() && !toEp.hasWildcard() {
		fromPort, ok1 := resolveSourcePort(instance, fromEp)
		toPort, ok2 := resolveSinkPort(instance, toEp)
		if !ok1 {
			return missingEndpoint(instance, fromEp, isModule)
		}
		if !ok2 {
			return missingEndpoint(instance, toEp, isModule)
		}
		return wire(instance, fromPort, toPort, connType)
	}

	fromHasWC := fromEp.hasWildcard()
	toHasWC := toEp.hasWildcard()

	var values []string
	switch {
	case fromHasWC && toHasWC:
		values = intersect(wildcardUniverse(instance, fromEp, "from"), wildcardUniverse(instance, toEp, "to"))
	case fromHasWC:
		values = wildcardUniverse(instance, fromEp, "from")
	default:
		values = wildcardUniverse(instance, toEp, "to")
	}

	if len(values) == 0 {
		instance.Warnings = append(instance.Warnings, fmt.Sprintf("[%s] connection %q -> %q matched no candidates", errors.ErrCodeWildcardEmpty, c.From, c.To))
		return nil
	}

	for _, v := range values {
		renderedFrom := fromEp
		if fromHasWC {
			renderedFrom = fromEp.render(v)
		}
		renderedTo := toEp
		if toHasWC {
			renderedTo = toEp.render(v)
		}

		fromPort, ok1 := resolveSourcePort(instance, renderedFrom)
		toPort, ok2 := resolveSinkPort(instance, renderedTo)
		if !ok1 || !ok2 {
			instance.Warnings = append(instance.Warnings, fmt.Sprintf("connection %q -> %q: no match for wildcard value %q", c.From, c.To, v))
			continue
		}
		if fromPort == toPort {
			continue
		}
		if err := wire(instance, fromPort, toPort, connType); err != nil {
			return err
		}
	}
	return nil
}

// wire creates the Link and propagates type/topic information between the
// two resolved ports, per connection type (spec.md §4.G steps 3-4).
func wire(instance *tree.Instance, from, to *tree.Port, connType tree.ConnectionType) error {
	msgType := from.MsgType
	if msgType == "" {
		msgType = to.MsgType
	}

	if err := checkTypeAgreement(from, to); err != nil {
		return err
	}
	if to.MsgType == "" {
		to.MsgType = msgType
	}
	if from.MsgType == "" {
		from.MsgType = msgType
	}

	l := &tree.Link{MsgType: msgType, From: from, To: to, Namespace: instance.Namespace, ConnectionType: connType}
	instance.Links = append(instance.Links, l)

	switch connType {
	case tree.ConnectionInternal:
		to.SetTopic(from.Topic)
		from.Users = append(from.Users, to)
		to.Servers = append(to.Servers, from)
	case tree.ConnectionInternalToExternal:
		if err := to.AddReference(from); err != nil {
			return err
		}
		to.SetTopic(from.Topic)
	case tree.ConnectionExternalToInternal:
		if err := from.AddReference(to); err != nil {
			return err
		}
	case tree.ConnectionExternal:
		if err := to.AddReference(from); err != nil {
			return err
		}
		to.SetTopic(from.Topic)
	}
	return nil
}

// checkTypeAgreement rejects a connection whose two ports both declare a
// concrete, differing message type ([E_TYPE_MISMATCH]).
func checkTypeAgreement(from, to *tree.Port) error {
	if from.MsgType != "" && to.MsgType != "" && from.MsgType != to.MsgType {
		return errors.New(errors.ErrCodeTypeMismatch, fmt.Sprintf("%s and %s declare conflicting message types (%s vs %s)", from.PortPath(), to.PortPath(), from.MsgType, to.MsgType))
	}
	return nil
}

// missingEndpoint raises [E_PORT_NOT_FOUND] with a Levenshtein-nearest
// suggestion inside a module; inside a system it only warns and the
// connection is skipped (spec.md §4.G, "module context raises, system
// context warns"). ep always names a child's port here — a self/boundary
// endpoint always materializes via selfPort and never reaches this path.
func missingEndpoint(instance *tree.Instance, ep endpoint, isModule bool) error {
	suggestion := suggestFor(instance, ep)
	msg := fmt.Sprintf("connection endpoint %q not found", ep.raw)
	if suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	if isModule {
		return errors.New(errors.ErrCodePortNotFound, msg)
	}
	instance.Warnings = append(instance.Warnings, fmt.Sprintf("[%s] %s", errors.ErrCodePortNotFound, msg))
	return nil
}

func suggestFor(instance *tree.Instance, ep endpoint) string {
	var candidates []string
	if child, ok := instance.Children[ep.ownerTok]; ok {
		for key := range child.Ports {
			candidates = append(candidates, key)
		}
	} else {
		for _, c := range instance.OrderedChildren() {
			candidates = append(candidates, c.Name)
		}
	}

	best, bestDist := "", -1
	target := ep.ownerTok + "." + ep.portTok
	for _, c := range candidates {
		d := levenshtein.Distance(target, c, nil)
		if bestDist == -1 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
