package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/financeflow-dev/financeflow/internal/model"
)

func newPlannedCommand() *cobra.Command {
	plannedCmd := &cobra.Command{
		Use:   "planned",
		Short: "Manage planned payments",
	}
	plannedCmd.AddCommand(newPlannedAddCommand())
	plannedCmd.AddCommand(newPlannedListCommand())
	plannedCmd.AddCommand(newPlannedRemoveCommand())
	plannedCmd.AddCommand(newPlannedSkipCommand())
	return plannedCmd
}

func newPlannedAddCommand() *cobra.Command {
	var dir, title, amount, txType, account, category, currency, unit, weekdays, start, end string
	var interval int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a planned payment rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", amount, err)
			}

			startDay, err := parseDateFlag(start)
			if err != nil {
				return err
			}
			var endDay time.Time
			if end != "" {
				endDay, err = parseDateFlag(end)
				if err != nil {
					return err
				}
				endDay = model.DayStart(endDay)
			}

			days, err := parseWeekdays(weekdays)
			if err != nil {
				return err
			}

			rule, err := a.planner.AddRule(model.PlannedPaymentRule{
				Title:     title,
				Category:  category,
				Amount:    amt,
				Type:      model.TransactionType(txType),
				AccountID: account,
				Currency:  a.currencyOr(currency),
				Cadence: model.Cadence{
					Unit:     model.CadenceUnit(unit),
					Interval: interval,
					Weekdays: days,
				},
				StartDate: model.DayStart(startDay),
				EndDate:   endDay,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Added planned payment %s (%s), next on %s\n",
				rule.Title, rule.ID, formatDay(rule.NextAfter(time.Now().AddDate(0, 0, -1))))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&title, "title", "", "payment title (required)")
	_ = cmd.MarkFlagRequired("title")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, always positive (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&txType, "type", string(model.TypeExpense), "income or expense")
	cmd.Flags().StringVar(&account, "account", "", "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&category, "category", "", "category label")
	cmd.Flags().StringVar(&currency, "currency", "", "currency code, defaults to the configured currency")
	cmd.Flags().StringVar(&unit, "unit", string(model.CadenceMonthly), "cadence unit (monthly, weekly, daily)")
	cmd.Flags().IntVar(&interval, "interval", 1, "repeat every N units")
	cmd.Flags().StringVar(&weekdays, "weekdays", "", "weekly only, comma separated (mon,tue,...)")
	cmd.Flags().StringVar(&start, "start", "", "first occurrence day, defaults to today")
	cmd.Flags().StringVar(&end, "end", "", "last occurrence day, inclusive")

	return cmd
}

func newPlannedListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List planned payment rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tTYPE\tAMOUNT\tCURRENCY\tCADENCE\tNEXT")
			now := time.Now()
			for _, rule := range a.rules.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					rule.ID, rule.Title, rule.Type, formatAmount(rule.Amount, rule.Currency),
					rule.Currency, formatCadence(rule.Cadence), formatDay(rule.NextAfter(now)))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")

	return cmd
}

func newPlannedRemoveCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a rule and its future occurrences, keeping history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}
			if err := a.planner.DeleteRule(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed planned payment %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")

	return cmd
}

func newPlannedSkipCommand() *cobra.Command {
	var dir, date string

	cmd := &cobra.Command{
		Use:   "skip <id>",
		Short: "Skip one occurrence of a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(dir)
			if err != nil {
				return err
			}

			day, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			if err := a.planner.SkipOccurrence(args[0], day); err != nil {
				return err
			}

			fmt.Printf("Skipped %s on %s\n", args[0], model.DayStart(day).Format(time.DateOnly))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "ledger directory")
	cmd.Flags().StringVar(&date, "date", "", "occurrence day to skip (required)")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if len(name) > 3 {
			name = name[:3]
		}
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		days = append(days, wd)
	}
	return days, nil
}

func formatCadence(c model.Cadence) string {
	unit := string(c.Unit)
	switch c.Unit {
	case model.CadenceMonthly:
		unit = "month"
	case model.CadenceWeekly:
		unit = "week"
	case model.CadenceDaily:
		unit = "day"
	}
	out := fmt.Sprintf("every %d %s(s)", c.Interval, unit)
	if len(c.Weekdays) > 0 {
		names := make([]string, len(c.Weekdays))
		for i, wd := range c.Weekdays {
			names[i] = strings.ToLower(wd.String()[:3])
		}
		out += " on " + strings.Join(names, ",")
	}
	return out
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}
