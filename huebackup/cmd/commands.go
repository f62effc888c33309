package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/aldld/huebackup/behavior"
	"github.com/aldld/huebackup/hue"
	"github.com/aldld/huebackup/mirror"
	"github.com/aldld/huebackup/snapshot"
	"github.com/aldld/huebackup/zonescene"
)

func (c *cli) reloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Refresh the local mirror from the bridge",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := c.fresh(cmd.Context(), app, true); err != nil {
				return err
			}
			info := app.Gateway.Info()
			c.out.success("Mirror refreshed at %s.", info.RefreshedAt.Local().Format(time.DateTime))
			return nil
		},
	}
}

func (c *cli) cacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache-info",
		Short: "Show the age and contents of the local mirror",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			info := app.Gateway.Info()
			if !info.Exists {
				c.out.info("No mirror yet. Run reload.")
				return nil
			}
			c.out.header("Mirror (%s backend, %s)", c.config.Cache.Backend, c.config.Cache.Dir)
			c.out.info("  refreshed: %s (%s ago)", info.RefreshedAt.Local().Format(time.DateTime), info.Age.Round(time.Second))
			if err := app.Gateway.Freshness(); err != nil {
				c.out.warn(err)
			}
			types := maps.Keys(info.Counts)
			sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
			for _, t := range types {
				c.out.info("  %-18s %d", t, info.Counts[t])
			}
			return nil
		},
	}
}

func (c *cli) saveRoomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save-room ROOM",
		Short: "Save a snapshot of a room's devices, scenes and switch behaviors",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			ctx := cmd.Context()
			app, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := c.fresh(ctx, app, false); err != nil {
				return err
			}
			snap, err := app.Snapshots.Save(ctx, a[0])
			if err != nil {
				return err
			}
			c.out.success("Saved %s (%s).", snap.Key(), plural(len(snap.Resources), "resource"))
			return nil
		},
	}
}

func (c *cli) diffRoomCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff-room ROOM|SNAPSHOT [SNAPSHOT]",
		Short: "Compare a snapshot with the live room or with another snapshot",
		Long: `With one argument, compares the latest snapshot of the room (or the given
snapshot key) with the current state. With two, compares the snapshots.`,
		Args: args(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, a []string) error {
			ctx := cmd.Context()
			app, err := c.open(ctx, len(a) == 1)
			if err != nil {
				return err
			}
			defer app.Close()

			from, err := app.Snapshots.Resolve(ctx, a[0])
			if err != nil {
				return err
			}
			var to *snapshot.Snapshot
			if len(a) == 2 {
				if to, err = app.Snapshots.Resolve(ctx, a[1]); err != nil {
					return err
				}
			} else {
				if err := c.fresh(ctx, app, false); err != nil {
					return err
				}
				if to, err = app.Snapshots.Live(from); err != nil {
					return err
				}
			}

			c.out.header("%s: %s -> %s", from.Room.Name, from.Key(), targetLabel(a, to))
			c.out.report(snapshot.Diff(from, to))
			return nil
		},
	}
}

func targetLabel(a []string, to *snapshot.Snapshot) string {
	if len(a) == 2 {
		return to.Key()
	}
	return "live"
}

func (c *cli) restoreRoomCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore-room ROOM|SNAPSHOT",
		Short: "Restore a room's scenes and switch behaviors from a snapshot",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			ctx := cmd.Context()
			app, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()

			snap, err := app.Snapshots.Resolve(ctx, a[0])
			if err != nil {
				return err
			}
			if err := c.fresh(ctx, app, true); err != nil {
				return err
			}

			result, err := app.Snapshots.Restore(ctx, snap, snapshot.RestoreOptions{
				Yes: yes,
				Confirm: func(r snapshot.Report) bool {
					c.out.header("Restoring %s changes:", snap.Key())
					c.out.report(r)
					return c.confirm(false, "Restore this snapshot?")
				},
			})
			if errors.Is(err, snapshot.ErrNotConfirmed) {
				return notConfirmed(c.out)
			}
			if err != nil {
				return err
			}

			for _, o := range result.Restored {
				line := fmt.Sprintf("%s %s %q", o.Op, o.Type, o.Name)
				if o.NewID != "" {
					line += fmt.Sprintf(" (%s -> %s)", o.ID, o.NewID)
				}
				c.out.success("%s", line)
				if o.Warning != nil {
					c.out.warn(o.Warning)
				}
			}
			for _, o := range result.Failed {
				c.out.error(fmt.Errorf("%s %q: %w", o.Type, o.Name, o.Err))
			}
			if !result.OK() {
				return fmt.Errorf("%d of %d resources failed", len(result.Failed), len(result.Failed)+len(result.Restored))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (c *cli) listSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-snapshots [ROOM]",
		Short: "List saved snapshots, newest first",
		Args:  args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			app, err := c.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			query := ""
			if len(a) == 1 {
				query = a[0]
			}
			entries, err := app.Snapshots.List(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				c.out.info("No snapshots.")
				return nil
			}
			for _, e := range entries {
				c.out.info("%s  %-20s %s", e.SavedAt.Local().Format(time.DateTime), e.Slug, e.Key)
			}
			return nil
		},
	}
}

func (c *cli) programButtonCmd() *cobra.Command {
	var (
		file   string
		action behavior.ButtonAction
		dryRun bool
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "program-button [SWITCH]",
		Short: "Program switch buttons from flags or a YAML action set",
		Example: `  huebackup program-button "Living switch" -b 1 --cycle Read,Relax
  huebackup program-button "Living switch" -b 4 --dim down --long-press "all off"
  huebackup program-button --file living.yaml`,
		Args: args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			set, err := actionSet(file, a, action)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := c.fresh(ctx, app, false); err != nil {
				return err
			}

			sw, err := app.Behaviors.FindSwitch(set.Switch)
			if err != nil {
				return err
			}
			plan, err := app.Behaviors.Build(sw, set.Buttons)
			if err != nil {
				return err
			}
			c.out.preview(plan.Preview(app.Behaviors.SceneName))
			if !plan.Changed() {
				c.out.info("Nothing to change.")
				return nil
			}
			if dryRun {
				c.out.info("Dry run, nothing written.")
				return nil
			}
			if !c.confirm(yes, "Apply to "+sw.Name()+"?") {
				return notConfirmed(c.out)
			}
			if err := c.warnOnly(app.Behaviors.Apply(ctx, plan)); err != nil {
				return err
			}
			c.out.success("Programmed %s.", plural(len(plan.Changes), "button"))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "YAML action set")
	f.IntVarP(&action.Button, "button", "b", 0, "button number (1-4)")
	f.StringVar(&action.Scene, "scene", "", "recall a single scene")
	f.StringSliceVar(&action.Cycle, "cycle", nil, "cycle through scenes, comma separated")
	f.StringArrayVar(&action.Schedule, "schedule", nil, "time based slot HH:MM=Scene, repeatable")
	f.StringVar(&action.Dim, "dim", "", "dim up or down while held")
	f.StringVar(&action.Where, "where", "", "room or zone the dimming applies to")
	f.StringVar(&action.LongPress, "long-press", "", `"all off", "home off" or a scene`)
	f.BoolVar(&dryRun, "dry-run", false, "show the change without applying it")
	f.BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

// actionSet builds the action set from a file or from the single button
// given by flags.
func actionSet(file string, a []string, action behavior.ButtonAction) (behavior.ActionSet, error) {
	if file != "" {
		set, err := behavior.LoadActionSet(file)
		if err != nil {
			return set, usageError{err}
		}
		if len(a) == 1 {
			set.Switch = a[0]
		}
		if set.Switch == "" {
			return set, usageError{errors.New("no switch given")}
		}
		return set, nil
	}

	if len(a) == 0 {
		return behavior.ActionSet{}, usageError{errors.New("give a switch name or --file")}
	}
	set := behavior.ActionSet{Switch: a[0], Buttons: []behavior.ButtonAction{action}}
	if err := set.Validate(); err != nil {
		return set, usageError{err}
	}
	return set, nil
}

func (c *cli) programZoneSwitchCmd() *cobra.Command {
	var (
		buttons  []int
		scenes   []string
		excludes []string
		dryRun   bool
		yes      bool
	)
	cmd := &cobra.Command{
		Use:   "program-zone-switch ZONE SWITCH",
		Short: "Program switch buttons with auto-dynamic scenes covering a zone",
		Long: `Takes the scenes each button cycles through (or --scenes), derives a scene
for the zone from each one and programs the buttons to cycle through them.
Existing zone scenes with the same name are reused.`,
		Example: `  huebackup program-zone-switch "Combined lounge" "The Sparkles" -b 1 -b 2 --exclude-button "2:Back lights"`,
		Args:    args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, a []string) error {
			req := zonescene.Request{Zone: a[0], Switch: a[1], Buttons: buttons, Scenes: scenes, DryRun: dryRun}
			for _, s := range excludes {
				ex, err := zonescene.ParseExclusion(s)
				if err != nil {
					return usageError{err}
				}
				req.Exclusions = append(req.Exclusions, ex)
			}

			ctx := cmd.Context()
			app, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := c.fresh(ctx, app, false); err != nil {
				return err
			}

			res, err := app.Zones.Prepare(req)
			if err != nil {
				return err
			}
			c.printZoneRun(app.Gateway.Store(), res)
			c.out.preview(res.Plan.Preview(res.SceneName(app.Behaviors.SceneName)))
			if dryRun {
				c.out.info("Dry run, nothing written.")
				return nil
			}
			if !c.confirm(yes, "Create scenes and program "+res.Switch.Name()+"?") {
				return notConfirmed(c.out)
			}
			if err := c.warnOnly(app.Zones.Execute(ctx, res)); err != nil {
				return err
			}
			c.out.success("Programmed %s for %s.", plural(len(res.Buttons), "button"), res.Zone.Metadata.Name)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntSliceVarP(&buttons, "button", "b", nil, "button number to program, repeatable")
	f.StringSliceVar(&scenes, "scenes", nil, "scenes to use instead of the buttons' current ones, comma separated")
	f.StringArrayVar(&excludes, "exclude-button", nil, `keep a light off for a button, "BUTTON:LIGHT_NAME"`)
	f.BoolVar(&dryRun, "dry-run", false, "show what would be done without changes")
	f.BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (c *cli) printZoneRun(store *mirror.Store, res *zonescene.Result) {
	lights := store.LightsIn(res.Zone)
	c.out.header("Zone %s (%s), switch %s", res.Zone.Metadata.Name, plural(len(lights), "light"), res.Switch.Name())
	for _, b := range res.Buttons {
		c.out.info("Button %d", b.Button)
		if len(b.Excluded) > 0 {
			names := make([]string, 0, len(b.Excluded))
			for _, id := range b.Excluded {
				var l hue.Light
				if err := store.Decode(hue.RTypeLight, id, &l); err != nil || l.Metadata.Name == "" {
					names = append(names, id)
					continue
				}
				names = append(names, l.Metadata.Name)
			}
			c.out.info("  excluding %s", strings.Join(names, ", "))
		}
		for _, d := range b.Scenes {
			state := "create"
			if d.Reused {
				state = "reuse " + d.SceneID
			}
			c.out.info("  %-32s from %-20s %s", d.Name, d.Source.Metadata.Name, state)
		}
	}
}

func (c *cli) deleteSceneCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-scene SCENE",
		Short: "Delete a scene that no switch behavior uses",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			ctx := cmd.Context()
			app, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := c.fresh(ctx, app, false); err != nil {
				return err
			}

			deriver := app.Zones.Deriver()
			sc, err := deriver.FindScene(a[0])
			if err != nil {
				return err
			}
			if !c.confirm(yes, fmt.Sprintf("Delete scene %q (%s)?", sc.Metadata.Name, sc.ID)) {
				return notConfirmed(c.out)
			}
			if err := c.warnOnly(deriver.DeleteScene(ctx, sc.ID)); err != nil {
				return err
			}
			c.out.success("Deleted %s.", sc.Metadata.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (c *cli) auditCmd() *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show changes this tool made on the bridge",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer app.Close()

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			entries, err := app.Gateway.Journal().Entries(cmd.Context(), from)
			if err != nil {
				return err
			}
			for _, e := range entries {
				c.out.info("%s  %-6s %s", e.At.Local().Format(time.DateTime), e.Op, hue.ResourceRef{ID: e.ID, Type: e.Type})
			}
			if len(entries) == 0 {
				c.out.info("No changes recorded.")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only show changes this recent, e.g. 24h")
	return cmd
}

func (c *cli) followCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "follow",
		Short: "Keep the mirror current from the bridge event stream",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer app.Close()

			err = app.Follow(cmd.Context())
			if ctxErr := cmd.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil
			}
			return err
		},
	}
}

func (c *cli) showSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-switch SWITCH",
		Short: "Show what each button of a switch does",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			ctx := cmd.Context()
			app, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := c.fresh(ctx, app, false); err != nil {
				return err
			}

			sw, err := app.Behaviors.FindSwitch(a[0])
			if err != nil {
				return err
			}
			c.out.header("%s (%s format, behavior %s)", sw.Name(), sw.Config.Format, sw.Behavior.ID)
			for _, b := range app.Behaviors.Overview(sw, time.Now()) {
				label := b.Key
				if b.Number > 0 {
					label = fmt.Sprintf("Button %d", b.Number)
				}
				c.out.info("%s", label)
				for _, line := range b.Lines {
					c.out.info("  %s", line)
				}
				if b.Now != "" {
					c.out.info("  now: %s", b.Now)
				}
			}
			return nil
		},
	}
}

func (c *cli) initSwitchCmd() *cobra.Command {
	var (
		format string
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "init-switch SWITCH",
		Short: "Create the button behavior of a switch that was never programmed",
		Long: `Creates a behavior instance for a switch that has none, with every button
set to an empty scene cycle. Program the buttons afterwards with
program-button or program-zone-switch.`,
		Args: args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			f, err := behavior.ParseFormat(format)
			if err != nil {
				return usageError{err}
			}

			ctx := cmd.Context()
			app, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := c.fresh(ctx, app, false); err != nil {
				return err
			}

			plan, err := app.Behaviors.PrepareInit(a[0], f)
			if err != nil {
				return err
			}
			c.out.header("%s, %s format, acting on %s", plan.Device.Metadata.Name, plan.Config.Format, plan.Where)
			c.out.info("  %s with an empty scene cycle", plural(len(plan.Config.Buttons), "button"))
			if !c.confirm(yes, "Create the behavior instance?") {
				return notConfirmed(c.out)
			}
			sw, err := app.Behaviors.Init(ctx, plan)
			if err := c.warnOnly(err); err != nil {
				return err
			}
			c.out.success("Initialised %s (behavior %s).", sw.Name(), sw.Behavior.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", behavior.DefaultFormat.String(), "configuration format, old or new")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (c *cli) duplicateSceneCmd() *cobra.Command {
	var (
		req        zonescene.DuplicateRequest
		brightness []string
		yes        bool
	)
	cmd := &cobra.Command{
		Use:   "duplicate-scene SOURCE [NEW_NAME]",
		Short: "Copy a scene with some lights changed",
		Long: `Copies a scene under a new name. With --zone the copy becomes a scene of that
zone covering every zone light, and its name defaults to "<source> (<zone>)".`,
		Example: `  huebackup duplicate-scene "Orange only" "Orange no lamp" --turn-off "Lamp lounge"
  huebackup duplicate-scene Reading "Reading dimmed" --brightness "Lamp lounge=50%"
  huebackup duplicate-scene Relax --zone "Combined lounge" --turn-off "Back lights"`,
		Args: args(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, a []string) error {
			req.Source = a[0]
			if len(a) == 2 {
				req.Name = a[1]
			} else if req.Zone == "" {
				return usageError{errors.New("give a new name or --zone")}
			}
			for _, s := range brightness {
				b, err := zonescene.ParseBrightness(s)
				if err != nil {
					return usageError{err}
				}
				req.Edits.Brightness = append(req.Edits.Brightness, b)
			}

			ctx := cmd.Context()
			app, err := c.open(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := c.fresh(ctx, app, false); err != nil {
				return err
			}

			deriver := app.Zones.Deriver()
			dup, err := deriver.PrepareDuplicate(req)
			if err != nil {
				return err
			}
			c.out.header("%s -> %s (%s)", dup.Source.Metadata.Name, dup.Scene.Metadata.Name, dup.Scene.Group)
			if req.Edits.Empty() {
				c.out.info("  exact copy")
			}
			for _, change := range dup.Changes {
				c.out.info("  %s", change)
			}
			c.out.info("  %s", plural(len(dup.Scene.Actions), "light"))
			if !c.confirm(yes, "Create the scene?") {
				return notConfirmed(c.out)
			}
			if err := c.warnOnly(deriver.CreateDuplicate(ctx, dup)); err != nil {
				return err
			}
			c.out.success("Created %s (%s).", dup.Scene.Metadata.Name, dup.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Group, "in", "", "only look for the source scene in this room or zone")
	f.StringVarP(&req.Zone, "zone", "z", "", "make the copy a scene of this zone")
	f.StringArrayVar(&req.Edits.TurnOn, "turn-on", nil, "light to turn on, repeatable")
	f.StringArrayVar(&req.Edits.TurnOff, "turn-off", nil, "light to turn off, repeatable")
	f.StringArrayVar(&brightness, "brightness", nil, `"LIGHT_NAME=50%", repeatable`)
	f.StringArrayVar(&req.Edits.Remove, "remove-light", nil, "light to drop from the scene, repeatable")
	f.BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (c *cli) autoDynamicCmd() *cobra.Command {
	var (
		room  string
		scene string
		set   string
		yes   bool
	)
	cmd := &cobra.Command{
		Use:   "auto-dynamic",
		Short: "Show or set auto-dynamic on scenes",
		Example: `  huebackup auto-dynamic -r Living
  huebackup auto-dynamic -r Living --set off
  huebackup auto-dynamic -s "Golden star" --set on`,
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var on bool
			switch set {
			case "", "off":
			case "on":
				on = true
			default:
				return usageError{fmt.Errorf("--set must be on or off, not %q", set)}
			}

			ctx := cmd.Context()
			app, err := c.open(ctx, set != "")
			if err != nil {
				return err
			}
			defer app.Close()
			if set != "" {
				if err := c.fresh(ctx, app, false); err != nil {
					return err
				}
			} else if err := app.Gateway.Freshness(); err != nil {
				c.out.warn(err)
			}

			deriver := app.Zones.Deriver()
			rows, err := deriver.ListScenes(room, scene)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				c.out.info("No scenes match.")
				return nil
			}
			if set == "" {
				for _, r := range rows {
					state := "off"
					if r.Scene.AutoDynamic {
						state = "on"
					}
					c.out.info("%-3s %-32s %s", state, r.Scene.Metadata.Name, r.Group)
				}
				return nil
			}

			pending := 0
			for _, r := range rows {
				if r.Scene.AutoDynamic != on {
					pending++
				}
			}
			if pending == 0 {
				c.out.info("All %s already have auto-dynamic %s.", plural(len(rows), "scene"), set)
				return nil
			}
			if !c.confirm(yes, fmt.Sprintf("Set auto-dynamic %s on %s?", set, plural(pending, "scene"))) {
				return notConfirmed(c.out)
			}
			changed, err := deriver.SetAutoDynamic(ctx, rows, on)
			for _, r := range changed {
				c.out.success("%s (%s)", r.Scene.Metadata.Name, r.Group)
			}
			return c.warnOnly(err)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&room, "room", "r", "", "only scenes of rooms or zones whose name contains this")
	f.StringVarP(&scene, "scene", "s", "", "only scenes whose name contains this")
	f.StringVar(&set, "set", "", "on or off")
	f.BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
