package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/reelfolio/reelfolio/internal/cli/client"
)

// NewProjectsCmd creates the projects command
func NewProjectsCmd(env *Env) *cobra.Command {
	var filter client.ProjectFilter

	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"ls"},
		Short:   "Browse projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/portfolio", func(ctx context.Context, app *App) error {
				projects, err := app.API.ListProjects(ctx, filter)
				if err != nil {
					return describe(err)
				}
				printProjects(app.Out, projects)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.Category, "category", "", "Only projects in this category")
	cmd.Flags().BoolVar(&filter.Featured, "featured", false, "Only featured projects")
	cmd.Flags().BoolVar(&filter.MyList, "my-list", false, "Only projects on My List")

	return cmd
}

// NewProjectCmd creates the project command
func NewProjectCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "project <id>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/project/"+args[0], func(ctx context.Context, app *App) error {
				p, err := app.API.GetProject(ctx, args[0])
				if err != nil {
					return describe(err)
				}

				fmt.Fprintf(app.Out, "%s\n", p.Title)
				fmt.Fprintf(app.Out, "%s\n\n", strings.Repeat("─", len([]rune(p.Title))))
				fmt.Fprintf(app.Out, "%s\n\n", p.Description)
				fmt.Fprintf(app.Out, "Status:   %s\n", p.Status)
				if name := p.CategoryName(); name != "" {
					fmt.Fprintf(app.Out, "Category: %s\n", name)
				}
				if len(p.Tags) > 0 {
					fmt.Fprintf(app.Out, "Tags:     %s\n", strings.Join(p.Tags, ", "))
				}
				if p.GithubURL != nil {
					fmt.Fprintf(app.Out, "Code:     %s\n", *p.GithubURL)
				}
				if p.VercelURL != nil {
					fmt.Fprintf(app.Out, "Live:     %s\n", *p.VercelURL)
				}
				return nil
			})
		},
	}
}

// NewSearchCmd creates the search command
func NewSearchCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search projects by title or tag",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/portfolio", func(ctx context.Context, app *App) error {
				projects, err := app.API.SearchProjects(ctx, strings.Join(args, " "))
				if err != nil {
					return describe(err)
				}
				printProjects(app.Out, projects)
				return nil
			})
		},
	}
}

func printProjects(out io.Writer, projects []client.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tSTATUS\tTAGS")
	fmt.Fprintln(w, "──\t─────\t────────\t──────\t────")
	for _, p := range projects {
		title := p.Title
		if p.Featured {
			title += " ★"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, title, p.CategoryName(), p.Status, strings.Join(p.Tags, ", "))
	}
	w.Flush()
}

// NewCategoriesCmd creates the categories command
func NewCategoriesCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List project categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/portfolio", func(ctx context.Context, app *App) error {
				categories, err := app.API.ListCategories(ctx)
				if err != nil {
					return describe(err)
				}
				if len(categories) == 0 {
					fmt.Fprintln(app.Out, "No categories found.")
					return nil
				}

				w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tORDER")
				fmt.Fprintln(w, "──\t────\t─────")
				for _, c := range categories {
					fmt.Fprintf(w, "%s\t%s\t%d\n", c.ID, c.Name, c.DisplayOrder)
				}
				w.Flush()
				return nil
			})
		},
	}
}

// NewBannersCmd creates the banners command
func NewBannersCmd(env *Env) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "banners",
		Short: "List hero banners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/", func(ctx context.Context, app *App) error {
				banners, err := app.API.ListBanners(ctx, !all)
				if err != nil {
					return describe(err)
				}
				if len(banners) == 0 {
					fmt.Fprintln(app.Out, "No banners found.")
					return nil
				}

				w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tMATCH\tGENRE\tRATING\tACTIVE")
				fmt.Fprintln(w, "──\t─────\t─────\t─────\t──────\t──────")
				for _, b := range banners {
					fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\t%s\t%t\n", b.ID, b.Title, b.MatchPercentage, b.Genre, b.Rating, b.IsActive)
				}
				w.Flush()
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include inactive banners")

	return cmd
}

// NewAboutCmd creates the about command
func NewAboutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "about",
		Short: "Show the about page",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/about", func(ctx context.Context, app *App) error {
				about, err := app.API.GetAbout(ctx)
				if err != nil {
					return describe(err)
				}
				printAbout(app.Out, about)
				return nil
			})
		},
	}
}

func printAbout(out io.Writer, about *client.About) {
	fmt.Fprintln(out, about.Name)
	for _, field := range []struct {
		label string
		value *string
	}{
		{"Status", about.Status},
		{"Location", about.Location},
		{"Email", about.Email},
		{"Phone", about.Phone},
	} {
		if field.value != nil && *field.value != "" {
			fmt.Fprintf(out, "%-9s %s\n", field.label+":", *field.value)
		}
	}
	if about.Bio != nil && *about.Bio != "" {
		fmt.Fprintf(out, "\n%s\n", *about.Bio)
	}

	if len(about.Timeline) > 0 {
		fmt.Fprintln(out, "\nTimeline")
		for _, entry := range about.Timeline {
			fmt.Fprintf(out, "  %s  %s\n", entry.Period, entry.Title)
			if entry.Description != "" {
				fmt.Fprintf(out, "      %s\n", entry.Description)
			}
		}
	}

	if len(about.Skills) > 0 {
		fmt.Fprintln(out, "\nSkills")
		groups := make([]string, 0, len(about.Skills))
		for group := range about.Skills {
			groups = append(groups, group)
		}
		sort.Strings(groups)
		for _, group := range groups {
			fmt.Fprintf(out, "  %s: %s\n", group, strings.Join(about.Skills[group], ", "))
		}
	}

	if len(about.SocialLinks) > 0 {
		fmt.Fprintln(out, "\nLinks")
		names := make([]string, 0, len(about.SocialLinks))
		for name := range about.SocialLinks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %s: %s\n", name, about.SocialLinks[name])
		}
	}
}
