package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cashflow/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage entry categories",
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			categories, err := a.store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			if len(categories) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No categories found. Use 'cashflow categories add' to create one."))
				return nil
			}

			printLine(cmd, cli.CategoryTable(categories))
			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			category, err := a.store.CreateCategory(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			printf(cmd, "%s Category %q has id %d\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), category.Name, category.ID)
			return nil
		},
	}
}
