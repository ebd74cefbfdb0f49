package report

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/artofscripting/networkvector/internal/ports"
	"github.com/artofscripting/networkvector/internal/scanning"
)

// Node groups understood by the graph templates.
const (
	GroupHost      = "host"
	GroupPort      = "port"
	GroupRiskyPort = "risky_port"
	GroupNetworkA  = "network_a"
	GroupNetworkB  = "network_b"
	GroupNetworkC  = "network_c"
	GroupShares    = "shares"
	GroupShare     = "share"
)

const linkColor = "#FFFF00"

var groupColors = map[string]string{
	GroupHost:      "#4CAF50",
	GroupPort:      "#2196F3",
	GroupRiskyPort: "#F44336",
	GroupNetworkA:  "#607D8B",
	GroupNetworkB:  "#795548",
	GroupNetworkC:  "#8BC34A",
	GroupShares:    "#8B0000",
	GroupShare:     "#B71C1C",
}

var groupSizes = map[string]int{
	GroupHost:      15,
	GroupPort:      10,
	GroupRiskyPort: 10,
	GroupNetworkA:  18,
	GroupNetworkB:  16,
	GroupNetworkC:  14,
	GroupShares:    10,
	GroupShare:     6,
}

// Node is one vertex of the topology graph.
type Node struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Group       string     `json:"group"`
	Color       string     `json:"color"`
	Size        int        `json:"size"`
	Description string     `json:"description"`
	Risk        ports.Risk `json:"risk,omitempty"`
	Port        uint16     `json:"port,omitempty"`
	OS          string     `json:"os,omitempty"`
}

// Link joins two nodes by ID.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
	Color  string `json:"color"`
}

// Graph is the node-link model rendered by the HTML templates.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`

	seen map[string]bool
}

func (g *Graph) addNode(id, label, group string) *Node {
	if g.seen[id] {
		return nil
	}
	g.seen[id] = true
	g.Nodes = append(g.Nodes, Node{
		ID:    id,
		Label: label,
		Group: group,
		Color: groupColors[group],
		Size:  groupSizes[group],
	})
	return &g.Nodes[len(g.Nodes)-1]
}

func (g *Graph) addLink(source, target string, weight int) {
	g.Links = append(g.Links, Link{Source: source, Target: target, Weight: weight, Color: linkColor})
}

// BuildGraph lays out hosts with open ports as a network hierarchy:
// IPv4 /8 → /16 → /24 → host (IPv6 hosts hang off their /64), each host
// linked to its open ports and, when shares were found, to a shares node.
func BuildGraph(hosts []scanning.Host) Graph {
	g := Graph{seen: make(map[string]bool)}

	for i := range hosts {
		h := &hosts[i]
		if !h.HasOpenPorts() {
			continue
		}
		hostID := h.DisplayName()
		if n := g.addNode(hostID, hostID, GroupHost); n != nil {
			n.OS = h.OS.String()
			n.Description = fmt.Sprintf("%d open ports, OS: %s", len(h.OpenPorts()), h.OS)
		}

		for _, r := range h.OpenResults() {
			group := GroupPort
			if ports.IsRisky(r.Port) {
				group = GroupRiskyPort
			}
			portID := fmt.Sprintf("%s::%d", hostID, r.Port)
			if n := g.addNode(portID, fmt.Sprintf("%d/%s", r.Port, ports.ServiceName(r.Port)), group); n != nil {
				d := ports.Describe(r.Port)
				n.Description = d.Summary
				n.Risk = d.Risk
				n.Port = r.Port
			}
			g.addLink(hostID, portID, 2)
		}

		g.addNetwork(h.Address, hostID)

		if len(h.Shares) > 0 {
			sharesID := hostID + "::Shares"
			g.addNode(sharesID, h.Address.String()+"-Shares", GroupShares)
			g.addLink(hostID, sharesID, 2)
			for _, s := range h.Shares {
				shareID := fmt.Sprintf("%s::share::%s", hostID, s)
				g.addNode(shareID, "Share: "+s, GroupShare)
				g.addLink(sharesID, shareID, 1)
			}
		}
	}
	return g
}

func (g *Graph) addNetwork(addr netip.Addr, hostID string) {
	if !addr.Is4() {
		p, _ := addr.Prefix(64)
		id := "network::v6::" + p.String()
		g.addNode(id, p.String(), GroupNetworkC)
		g.addLink(id, hostID, 2)
		return
	}

	b := addr.As4()
	aID := fmt.Sprintf("network::class_a::%d", b[0])
	bID := fmt.Sprintf("network::class_b::%d.%d", b[0], b[1])
	cLabel := fmt.Sprintf("%d.%d.%d.0/24", b[0], b[1], b[2])
	cID := "network::class_c::" + cLabel

	g.addNode(aID, fmt.Sprintf("Network %d.x.x.x", b[0]), GroupNetworkA)
	if g.addNode(bID, fmt.Sprintf("Network %d.%d.x.x", b[0], b[1]), GroupNetworkB) != nil {
		g.addLink(aID, bID, 3)
	}
	if g.addNode(cID, cLabel, GroupNetworkC) != nil {
		g.addLink(bID, cID, 2)
	}
	g.addLink(cID, hostID, 2)
}

// Groups returns the distinct node groups in first-seen order.
func (g *Graph) Groups() []string {
	var out []string
	for _, n := range g.Nodes {
		if !slices.Contains(out, n.Group) {
			out = append(out, n.Group)
		}
	}
	return out
}
