package commands

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reelfolio/reelfolio/internal/cli/client"
)

// NewAdminCmd creates the admin command group. Every subcommand is guarded
// by the /admin route, so only signed-in admins get past the session check.
func NewAdminCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage portfolio content (admins only)",
	}

	cmd.AddCommand(newAdminStatsCmd(env))
	cmd.AddCommand(newAdminProjectsCmd(env))
	cmd.AddCommand(newAdminCategoriesCmd(env))
	cmd.AddCommand(newAdminBannersCmd(env))
	cmd.AddCommand(newAdminUploadCmd(env))
	cmd.AddCommand(newAdminAboutCmd(env))
	cmd.AddCommand(newAdminGrantCmd(env))

	return cmd
}

func newAdminStatsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin", func(ctx context.Context, app *App) error {
				stats, err := app.API.Stats(ctx)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "Total projects:    %d\n", stats.TotalProjects)
				fmt.Fprintf(app.Out, "Live projects:     %d\n", stats.LiveProjects)
				fmt.Fprintf(app.Out, "Featured projects: %d\n", stats.FeaturedProjects)
				fmt.Fprintf(app.Out, "Categories:        %d\n", stats.Categories)
				return nil
			})
		},
	}
}

func newAdminProjectsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Create and delete projects",
	}

	var (
		input      client.ProjectInput
		tags       string
		categoryID string
		githubURL  string
		vercelURL  string
	)

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/projects", func(ctx context.Context, app *App) error {
				input.Tags = splitTags(tags)
				input.CategoryID = optional(categoryID)
				input.GithubURL = optional(githubURL)
				input.VercelURL = optional(vercelURL)

				project, err := app.API.CreateProject(ctx, input)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Project created: %s (%s)\n", project.Title, project.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&input.Title, "title", "", "Project title (required)")
	create.Flags().StringVar(&input.Description, "description", "", "Project description (required)")
	create.Flags().StringVar(&input.Image, "image", "", "Image URL (required)")
	create.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	create.Flags().StringVar(&input.Status, "status", "", "Status: 'In Progress' or 'Live'")
	create.Flags().BoolVar(&input.Featured, "featured", false, "Feature on the home page")
	create.Flags().BoolVar(&input.InMyList, "my-list", false, "Add to My List")
	create.Flags().StringVar(&categoryID, "category-id", "", "Category ID")
	create.Flags().StringVar(&githubURL, "github", "", "Source code URL")
	create.Flags().StringVar(&vercelURL, "live", "", "Live deployment URL")
	create.MarkFlagRequired("title")
	create.MarkFlagRequired("description")
	create.MarkFlagRequired("image")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/projects", func(ctx context.Context, app *App) error {
				if err := app.API.DeleteProject(ctx, args[0]); err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Project %s deleted\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(create, newAdminProjectUpdateCmd(env), remove)
	return cmd
}

func newAdminProjectUpdateCmd(env *Env) *cobra.Command {
	var (
		title, description, image, tags, status string
		categoryID, githubURL, vercelURL        string
		featured, myList                        bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a project; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/projects", func(ctx context.Context, app *App) error {
				current, err := app.API.GetProject(ctx, args[0])
				if err != nil {
					return describe(err)
				}

				input := current.Input()
				flags := cmd.Flags()
				if flags.Changed("title") {
					input.Title = title
				}
				if flags.Changed("description") {
					input.Description = description
				}
				if flags.Changed("image") {
					input.Image = image
				}
				if flags.Changed("tags") {
					input.Tags = splitTags(tags)
				}
				if flags.Changed("status") {
					input.Status = status
				}
				if flags.Changed("featured") {
					input.Featured = featured
				}
				if flags.Changed("my-list") {
					input.InMyList = myList
				}
				if flags.Changed("category-id") {
					input.CategoryID = optional(categoryID)
				}
				if flags.Changed("github") {
					input.GithubURL = optional(githubURL)
				}
				if flags.Changed("live") {
					input.VercelURL = optional(vercelURL)
				}

				project, err := app.API.UpdateProject(ctx, args[0], input)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Project updated: %s (%s)\n", project.Title, project.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Project title")
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	cmd.Flags().StringVar(&image, "image", "", "Image URL")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags, replaces the current ones")
	cmd.Flags().StringVar(&status, "status", "", "Status: 'In Progress' or 'Live'")
	cmd.Flags().BoolVar(&featured, "featured", false, "Feature on the home page")
	cmd.Flags().BoolVar(&myList, "my-list", false, "Add to My List")
	cmd.Flags().StringVar(&categoryID, "category-id", "", "Category ID, empty to uncategorize")
	cmd.Flags().StringVar(&githubURL, "github", "", "Source code URL, empty to clear")
	cmd.Flags().StringVar(&vercelURL, "live", "", "Live deployment URL, empty to clear")

	return cmd
}

func newAdminCategoriesCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Create and delete categories",
	}

	var (
		input       client.CategoryInput
		description string
		icon        string
	)

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/categories", func(ctx context.Context, app *App) error {
				input.Name = args[0]
				input.Description = optional(description)
				input.Icon = optional(icon)

				category, err := app.API.CreateCategory(ctx, input)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Category created: %s (%s)\n", category.Name, category.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "Category description")
	create.Flags().StringVar(&icon, "icon", "", "Icon name")
	create.Flags().IntVar(&input.DisplayOrder, "order", 0, "Display order")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category; its projects become uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/categories", func(ctx context.Context, app *App) error {
				if err := app.API.DeleteCategory(ctx, args[0]); err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Category %s deleted\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(create, newAdminCategoryUpdateCmd(env), remove)
	return cmd
}

func newAdminCategoryUpdateCmd(env *Env) *cobra.Command {
	var (
		name, description, icon string
		order                   int
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a category; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/categories", func(ctx context.Context, app *App) error {
				categories, err := app.API.ListCategories(ctx)
				if err != nil {
					return describe(err)
				}
				var current *client.Category
				for i := range categories {
					if categories[i].ID == args[0] {
						current = &categories[i]
					}
				}
				if current == nil {
					return fmt.Errorf("category %s not found", args[0])
				}

				input := current.Input()
				flags := cmd.Flags()
				if flags.Changed("name") {
					input.Name = name
				}
				if flags.Changed("description") {
					input.Description = optional(description)
				}
				if flags.Changed("icon") {
					input.Icon = optional(icon)
				}
				if flags.Changed("order") {
					input.DisplayOrder = order
				}

				category, err := app.API.UpdateCategory(ctx, args[0], input)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Category updated: %s (%s)\n", category.Name, category.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Category name")
	cmd.Flags().StringVar(&description, "description", "", "Category description, empty to clear")
	cmd.Flags().StringVar(&icon, "icon", "", "Icon name, empty to clear")
	cmd.Flags().IntVar(&order, "order", 0, "Display order")

	return cmd
}

func newAdminBannersCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banners",
		Short: "Create and delete hero banners",
	}

	var (
		input    client.BannerInput
		subtitle string
		match    int
		inactive bool
	)

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a banner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/banners", func(ctx context.Context, app *App) error {
				input.Subtitle = optional(subtitle)
				if cmd.Flags().Changed("match") {
					input.MatchPercentage = &match
				}
				if inactive {
					active := false
					input.IsActive = &active
				}

				banner, err := app.API.CreateBanner(ctx, input)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Banner created: %s (%s)\n", banner.Title, banner.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&input.Title, "title", "", "Banner title (required)")
	create.Flags().StringVar(&subtitle, "subtitle", "", "Banner subtitle")
	create.Flags().StringVar(&input.Description, "description", "", "Banner description (required)")
	create.Flags().StringVar(&input.ImageURL, "image", "", "Image URL (required)")
	create.Flags().IntVar(&match, "match", 0, "Match percentage, 0-100")
	create.Flags().StringVar(&input.Genre, "genre", "", "Genre label")
	create.Flags().IntVar(&input.Year, "year", 0, "Year")
	create.Flags().StringVar(&input.Rating, "rating", "", "Rating label")
	create.Flags().IntVar(&input.DisplayOrder, "order", 0, "Display order")
	create.Flags().BoolVar(&inactive, "inactive", false, "Create the banner hidden")
	create.MarkFlagRequired("title")
	create.MarkFlagRequired("description")
	create.MarkFlagRequired("image")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a banner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/banners", func(ctx context.Context, app *App) error {
				if err := app.API.DeleteBanner(ctx, args[0]); err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Banner %s deleted\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(create, newAdminBannerUpdateCmd(env), remove)
	return cmd
}

func newAdminBannerUpdateCmd(env *Env) *cobra.Command {
	var (
		title, subtitle, description, image, genre, rating string
		match, year, order                                 int
		active                                             bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a banner; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/banners", func(ctx context.Context, app *App) error {
				banners, err := app.API.ListBanners(ctx, false)
				if err != nil {
					return describe(err)
				}
				var current *client.Banner
				for i := range banners {
					if banners[i].ID == args[0] {
						current = &banners[i]
					}
				}
				if current == nil {
					return fmt.Errorf("banner %s not found", args[0])
				}

				input := current.Input()
				flags := cmd.Flags()
				if flags.Changed("title") {
					input.Title = title
				}
				if flags.Changed("subtitle") {
					input.Subtitle = optional(subtitle)
				}
				if flags.Changed("description") {
					input.Description = description
				}
				if flags.Changed("image") {
					input.ImageURL = image
				}
				if flags.Changed("match") {
					input.MatchPercentage = &match
				}
				if flags.Changed("genre") {
					input.Genre = genre
				}
				if flags.Changed("year") {
					input.Year = year
				}
				if flags.Changed("rating") {
					input.Rating = rating
				}
				if flags.Changed("order") {
					input.DisplayOrder = order
				}
				if flags.Changed("active") {
					input.IsActive = &active
				}

				banner, err := app.API.UpdateBanner(ctx, args[0], input)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Banner updated: %s (%s)\n", banner.Title, banner.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Banner title")
	cmd.Flags().StringVar(&subtitle, "subtitle", "", "Banner subtitle, empty to clear")
	cmd.Flags().StringVar(&description, "description", "", "Banner description")
	cmd.Flags().StringVar(&image, "image", "", "Image URL")
	cmd.Flags().IntVar(&match, "match", 0, "Match percentage, 0-100")
	cmd.Flags().StringVar(&genre, "genre", "", "Genre label")
	cmd.Flags().IntVar(&year, "year", 0, "Year")
	cmd.Flags().StringVar(&rating, "rating", "", "Rating label")
	cmd.Flags().IntVar(&order, "order", 0, "Display order")
	cmd.Flags().BoolVar(&active, "active", true, "Show the banner (--active=false hides it)")

	return cmd
}

func newAdminAboutCmd(env *Env) *cobra.Command {
	var (
		name, bio, status, email, phone, location, avatar string
		skills, links, timeline                           []string
	)

	cmd := &cobra.Command{
		Use:   "about",
		Short: "Create or edit the about page; only the given flags change",
		Example: `  reelfolio admin about --name "Ada" --location London \
    --skill "Backend=Go,PostgreSQL" --link github=https://github.com/ada \
    --timeline "2020 - now|Staff Engineer|Platform team"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/about", func(ctx context.Context, app *App) error {
				var about client.About
				current, err := app.API.GetAbout(ctx)
				switch {
				case err == nil:
					about = *current
				case client.StatusOf(err) == http.StatusNotFound:
				default:
					return describe(err)
				}

				flags := cmd.Flags()
				if flags.Changed("name") {
					about.Name = name
				}
				for flag, field := range map[string]struct {
					value string
					dst   **string
				}{
					"bio":      {bio, &about.Bio},
					"status":   {status, &about.Status},
					"email":    {email, &about.Email},
					"phone":    {phone, &about.Phone},
					"location": {location, &about.Location},
					"avatar":   {avatar, &about.Avatar},
				} {
					if flags.Changed(flag) {
						*field.dst = optional(field.value)
					}
				}
				if flags.Changed("skill") {
					if about.Skills, err = parseSkills(skills); err != nil {
						return err
					}
				}
				if flags.Changed("link") {
					if about.SocialLinks, err = parsePairs(links); err != nil {
						return err
					}
				}
				if flags.Changed("timeline") {
					if about.Timeline, err = parseTimeline(timeline); err != nil {
						return err
					}
				}

				if about.Name == "" {
					return fmt.Errorf("name is required (use --name flag)")
				}

				saved, err := app.API.UpsertAbout(ctx, about)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ About page saved for %s\n", saved.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&bio, "bio", "", "Short biography")
	cmd.Flags().StringVar(&status, "status", "", "Availability status")
	cmd.Flags().StringVar(&email, "email", "", "Contact email")
	cmd.Flags().StringVar(&phone, "phone", "", "Contact phone")
	cmd.Flags().StringVar(&location, "location", "", "Location")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Avatar image URL")
	cmd.Flags().StringArrayVar(&skills, "skill", nil, "Skill group as 'group=a,b,c' (repeatable, replaces all groups)")
	cmd.Flags().StringArrayVar(&links, "link", nil, "Social link as 'name=url' (repeatable, replaces all links)")
	cmd.Flags().StringArrayVar(&timeline, "timeline", nil, "Timeline entry as 'period|title|description' (repeatable, replaces the timeline)")

	return cmd
}

func newAdminUploadCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <bucket> <file>",
		Short: "Upload an image to a storage bucket",
		Long:  "Upload an image to one of the storage buckets (banners, avatars) and print its public URL.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/uploads", func(ctx context.Context, app *App) error {
				url, err := app.API.Upload(ctx, args[0], args[1])
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ Uploaded: %s\n", url)
				return nil
			})
		},
	}
}

func newAdminGrantCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <email>",
		Short: "Grant the admin role to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, cmd, "/admin/roles", func(ctx context.Context, app *App) error {
				if err := app.API.GrantAdmin(ctx, args[0]); err != nil {
					return describe(err)
				}
				fmt.Fprintf(app.Out, "✓ %s is now an admin\n", args[0])
				return nil
			})
		},
	}
}

func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func parsePairs(values []string) (map[string]string, error) {
	pairs := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid value %q: expected name=value", v)
		}
		pairs[key] = strings.TrimSpace(value)
	}
	return pairs, nil
}

func parseSkills(values []string) (map[string][]string, error) {
	pairs, err := parsePairs(values)
	if err != nil {
		return nil, err
	}
	skills := make(map[string][]string, len(pairs))
	for group, list := range pairs {
		skills[group] = splitTags(list)
	}
	return skills, nil
}

func parseTimeline(values []string) ([]client.TimelineEntry, error) {
	entries := make([]client.TimelineEntry, 0, len(values))
	for _, v := range values {
		parts := strings.SplitN(v, "|", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid timeline entry %q: expected period|title|description", v)
		}
		entry := client.TimelineEntry{
			Period: strings.TrimSpace(parts[0]),
			Title:  strings.TrimSpace(parts[1]),
		}
		if len(parts) == 3 {
			entry.Description = strings.TrimSpace(parts[2])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
