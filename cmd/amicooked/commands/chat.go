package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/Champion2005/amicooked/pkg/agent"
	"github.com/Champion2005/amicooked/pkg/gateway"
	"github.com/Champion2005/amicooked/pkg/skills"
)

// RunChat is the terminal conversation loop. The first argument picks the
// user id; it defaults to "local".
func RunChat(args []string) {
	uid := "local"
	if len(args) > 0 && args[0] != "" {
		uid = args[0]
	}

	rt := buildRuntime(mustLoadConfig())
	defer rt.Close()

	ctx := context.Background()
	a, err := rt.openAgent(ctx, uid)
	if err != nil {
		fmt.Printf("Failed to start session: %v\n", err)
		return
	}

	rl, err := readline.New("you> ")
	if err != nil {
		fmt.Printf("Failed to start prompt: %v\n", err)
		return
	}
	defer rl.Close()

	fmt.Printf("%s amicooked chat (%s). :help for commands, :q to leave.\n", Logo, uid)

	mode := agent.ModeCoach
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if quit := runMeta(ctx, a, &mode, line); quit {
				break
			}
			continue
		}

		fmt.Print("coach> ")
		_, err = a.ProcessMessage(ctx, line, mode, func(delta string) {
			fmt.Print(delta)
		}, "")
		if err != nil {
			fmt.Println(agent.FormatUserError(err))
			continue
		}
		fmt.Println()
	}

	a.EndSession(ctx)
	fmt.Println("Session closed.")
}

// runMeta handles ":" commands; returns true when the loop should exit.
func runMeta(ctx context.Context, a *agent.Agent, mode *agent.Mode, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "q", "quit", "exit":
		return true

	case "help":
		fmt.Println("Commands:")
		fmt.Println("  :analyze            Run a fresh assessment")
		fmt.Println("  :level              Show the latest assessment")
		fmt.Println("  :projects           Suggest practice projects")
		fmt.Println("  :progress           Compare against the previous assessment")
		fmt.Println("  :path               Generate a learning path")
		fmt.Println("  :mode coach|roast   Switch tone")
		fmt.Println("  :memory [on|off|wipe|<note>]")
		fmt.Println("  :reset              Clear the conversation")
		fmt.Println("  :q                  Leave")

	case "analyze":
		res, err := a.AnalyzeProfile(ctx, nil, "")
		if err != nil {
			fmt.Println(agent.FormatUserError(err))
			break
		}
		fmt.Println(gateway.FormatResult(res))

	case "level":
		if prior := a.Prior(); prior != nil {
			fmt.Println(gateway.FormatResult(prior))
		} else {
			fmt.Println("No assessment yet. Try :analyze.")
		}

	case "projects":
		projects, err := a.RecommendProjects(ctx, "")
		if err != nil {
			fmt.Println(agent.FormatUserError(err))
			break
		}
		for i, p := range projects {
			fmt.Printf("%d. %s (%s)\n   %s\n", i+1, p.Name, p.Difficulty, p.Description)
			if len(p.Skills) > 0 {
				fmt.Printf("   Practices: %s\n", strings.Join(p.Skills, ", "))
			}
		}

	case "progress":
		out, err := a.RunSkill(ctx, skills.SkillCompareProgress, nil, "")
		if err != nil {
			fmt.Println(agent.FormatUserError(err))
			break
		}
		printProgress(out.Progress)

	case "path":
		out, err := a.RunSkill(ctx, skills.SkillGenerateLearningPath, nil, "")
		if err != nil {
			fmt.Println(agent.FormatUserError(err))
			break
		}
		printPath(out.Path)

	case "mode":
		*mode = agent.ParseMode(arg)
		fmt.Printf("Mode is now %s.\n", *mode)

	case "memory":
		runMemoryMeta(ctx, a, arg)

	case "reset":
		a.EndSession(ctx)
		fmt.Println("Conversation cleared.")

	default:
		fmt.Printf("Unknown command :%s (:help lists them)\n", cmd)
	}
	return false
}

func runMemoryMeta(ctx context.Context, a *agent.Agent, arg string) {
	switch arg {
	case "", "status":
		st := a.MemoryStatus()
		if !st.Eligible {
			fmt.Println("Memory persistence needs the pro plan or above.")
			return
		}
		state := "on"
		if !st.Enabled {
			state = "off"
		}
		fmt.Printf("Memory is %s, %d of %d used.\n", state, st.Items, st.Cap)
	case "on":
		a.SetMemoryEnabled(ctx, true)
		fmt.Println("Memory on.")
	case "off":
		a.SetMemoryEnabled(ctx, false)
		fmt.Println("Memory off.")
	case "wipe":
		if err := a.Wipe(ctx); err != nil {
			fmt.Printf("Wipe failed: %v\n", err)
			return
		}
		fmt.Println("Memory wiped.")
	default:
		st, _ := a.AddMemory(ctx, "context", arg)
		if !st.Eligible {
			fmt.Println("Your plan does not persist memory; noted for this session only.")
			return
		}
		fmt.Printf("Noted, %d of %d used.\n", st.Items, st.Cap)
	}
}

func printProgress(p *skills.ProgressReport) {
	if p == nil {
		return
	}
	fmt.Printf("Level %d -> %d\n", p.LevelBefore, p.LevelAfter)
	for _, d := range p.Improved {
		fmt.Printf("  up   %s: %d -> %d (+%d)\n", d.Key, d.Before, d.After, d.Delta)
	}
	for _, d := range p.Declined {
		fmt.Printf("  down %s: %d -> %d (%d)\n", d.Key, d.Before, d.After, d.Delta)
	}
	for _, d := range p.Unchanged {
		fmt.Printf("  flat %s: %d\n", d.Key, d.After)
	}
	if p.Verdict != "" {
		fmt.Println(p.Verdict)
	}
}

func printPath(path *skills.LearningPath) {
	if path == nil {
		return
	}
	for i, m := range path.Milestones {
		fmt.Printf("%d. %s (%d weeks)\n", i+1, m.Title, m.Weeks)
		if m.Focus != "" {
			fmt.Printf("   %s\n", m.Focus)
		}
		for _, action := range m.Actions {
			fmt.Printf("   - %s\n", action)
		}
	}
	fmt.Printf("Total: %d weeks\n", path.TotalWeeks())
}
