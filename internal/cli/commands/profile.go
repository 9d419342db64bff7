package commands

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/reelfolio/reelfolio/internal/profile"
)

// NewProfileCmd creates the profile command
func NewProfileCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [recruiter|developer|stakeholder|adventurer]",
		Short: "Choose who's watching",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/profile-selection", func(ctx context.Context, app *App) error {
				var (
					p   profile.Profile
					err error
				)
				if len(args) == 1 {
					p, err = profile.Parse(args[0])
				} else {
					p, err = promptProfile(app.Profiles)
				}
				if err != nil {
					return err
				}

				if err := app.Profiles.Select(p); err != nil {
					// Still selected for this run
					fmt.Fprintf(app.Out, "Warning: failed to save profile: %v\n", err)
				}

				info := p.Info()
				fmt.Fprintf(app.Out, "✓ Watching as %s: %s\n", info.Name, info.Description)
				return nil
			})
		},
	}
}

func promptProfile(store *profile.Store) (profile.Profile, error) {
	cursor := 0
	if current, ok := store.Selected(); ok {
		for i, info := range profile.All {
			if info.Profile == current {
				cursor = i
			}
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ .Name | cyan }} - {{ .Description }}",
		Inactive: "  {{ .Name }} - {{ .Description | faint }}",
		Selected: "✓ {{ .Name | green }}",
	}

	prompt := promptui.Select{
		Label:     "Who's watching?",
		Items:     profile.All,
		Templates: templates,
		CursorPos: cursor,
		Size:      len(profile.All),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("profile selection cancelled: %w", err)
	}
	return profile.All[idx].Profile, nil
}
