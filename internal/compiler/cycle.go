package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/numerus/internal/ir"
)

// CallCycle is a set of functions that can reach themselves through calls.
type CallCycle struct {
	Path    []string `json:"path"`    // ["f", "g", "f"]
	Message string   `json:"message"` // Human-readable description
}

// FindCallCycles reports every recursive group in p's call graph.
//
// Compile cannot produce recursion, because a body only sees declarations
// that precede it. Programs built by hand or loaded from elsewhere can, and
// QBE would accept them, so Validate rejects them here.
//
// The algorithm:
//  1. Build the caller -> callee graph from call instructions
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with more than one member, or a self-loop
//
// Cycles are reported in declaration order of their first member.
func FindCallCycles(p *ir.Program) []CallCycle {
	graph, order := buildCallGraph(p)

	var cycles []CallCycle
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	return cycles
}

// callGraph maps a function symbol to the symbols it calls.
type callGraph map[string][]string

// buildCallGraph returns the call graph and the node visiting order. Only
// functions defined in p are nodes; external callees such as pow are leaves
// that cannot close a cycle.
func buildCallGraph(p *ir.Program) (callGraph, []string) {
	graph := make(callGraph)
	order := []string{p.Entry.Name}

	defined := map[string]bool{p.Entry.Name: true}
	for _, fn := range p.Functions {
		if !defined[fn.Name] {
			order = append(order, fn.Name)
		}
		defined[fn.Name] = true
	}

	addEdges := func(fn *ir.Function) {
		if graph[fn.Name] == nil {
			graph[fn.Name] = []string{}
		}
		for _, in := range fn.Body {
			if call, ok := in.Op.(ir.Call); ok && defined[call.Func] {
				graph[fn.Name] = append(graph[fn.Name], call.Func)
			}
		}
	}

	addEdges(&p.Entry)
	for i := range p.Functions {
		addEdges(&p.Functions[i])
	}
	return graph, order
}

func hasSelfLoop(node string, graph callGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// starting a search from each unvisited node of order in turn.
func tarjanSCC(graph callGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC: pop it off.
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func sccToCycle(scc []string, graph callGraph) CallCycle {
	if len(scc) == 1 {
		name := scc[0]
		return CallCycle{
			Path:    []string{name, name},
			Message: fmt.Sprintf("function $%s calls itself", name),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CallCycle{
		Path:    path,
		Message: "recursive calls: $" + strings.Join(path, " -> $"),
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns there.
func reconstructCyclePath(scc []string, graph callGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
