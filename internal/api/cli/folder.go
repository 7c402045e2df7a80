package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	app "tif-patch/internal/application"
)

var bondingMap bool

var statsCmd = &cobra.Command{
	Use:   "stats <folder>",
	Short: "Статистика аннотаций папки экспорта",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openFolder(cmd, args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		p := out(cmd)
		stats := c.AnnotationService.Stats()
		if stats.Total == 0 {
			p.Info("No annotations")
			return nil
		}

		types := make([]string, 0, len(stats.ByType))
		for t := range stats.ByType {
			types = append(types, t)
		}
		sort.Strings(types)

		rows := make([][]string, 0, len(types))
		for _, t := range types {
			area := stats.AreaByType[t]
			rows = append(rows, []string{
				t,
				strconv.Itoa(stats.ByType[t]),
				fmt.Sprintf("%.1f", area.Mean),
				fmt.Sprintf("%.1f", area.StdDev),
				fmt.Sprintf("%.1f", area.Min),
				fmt.Sprintf("%.1f", area.Max),
			})
		}
		p.Header(fmt.Sprintf("%d annotations on %d chips", stats.Total, len(stats.ByChip)))
		p.Table([]string{"TYPE", "COUNT", "MEAN", "STDDEV", "MIN", "MAX"}, rows)
		return nil
	},
}

var binsCmd = &cobra.Command{
	Use:   "bins <folder>",
	Short: "Карта бинов кристаллов",
	Long: `Печатает карту бинов кристаллов по сетке пластины (строки Y, столбцы X)
и сводку по бинам. С --bonding печатает карту присутствия кристаллов.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openFolder(cmd, args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		p := out(cmd)
		chips := c.Workspace.Chips()
		grid := c.Workspace.Grid(c.Config.Grid)

		if bondingMap {
			p.Header("Bonding map")
			p.Info("%s", app.BondingMapText(chips, grid))
			return nil
		}

		p.Header("Bin map")
		p.Info("%s", app.BinMapText(c.Classification.BinMap(chips, grid), grid))

		stats := c.Classification.BinStats(chips)
		rows := make([][]string, 0, len(stats.ByBin))
		for _, bc := range stats.Sorted() {
			rows = append(rows, []string{strconv.Itoa(bc.Bin), bc.Name, strconv.Itoa(bc.Count)})
		}
		p.Table([]string{"BIN", "NAME", "CHIPS"}, rows)
		return nil
	},
}

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct <folder>",
	Short: "Восстановить список патчей по структуре папки",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openFolder(cmd, args[0])
		if err != nil {
			return err
		}
		defer c.Close()

		state := c.Workspace.State()
		rows := make([][]string, 0, len(state.Patches))
		for _, e := range state.Patches {
			rows = append(rows, []string{e.Chip.String(), e.Type, strconv.Itoa(len(e.Layers))})
		}
		out(cmd).Table([]string{"CHIP", "TYPE", "LAYERS"}, rows)
		return nil
	},
}

func init() {
	binsCmd.Flags().BoolVar(&bondingMap, "bonding", false, "карта присутствия кристаллов")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(binsCmd)
	rootCmd.AddCommand(reconstructCmd)
}
