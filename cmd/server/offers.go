package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/jobautomate-backend/internal/francetravail"
	"github.com/ignatzorin/jobautomate-backend/internal/service"
)

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Запросы к API France Travail без запуска сервера",
}

var offersSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Найти офферы и вывести JSON",
	RunE:  runOffersSearch,
}

var offersShowCmd = &cobra.Command{
	Use:   "show <offer-id>",
	Short: "Показать детали оффера",
	Args:  cobra.ExactArgs(1),
	RunE:  runOffersShow,
}

var (
	offersKeywords string
	offersCommune  string
	offersDistance int
	offersContract string
	offersPage     int
)

func init() {
	offersSearchCmd.Flags().StringVarP(&offersKeywords, "keywords", "k", "", "motsCles, через запятую")
	offersSearchCmd.Flags().StringVarP(&offersCommune, "commune", "c", "", "код INSEE коммуны")
	offersSearchCmd.Flags().IntVarP(&offersDistance, "distance", "d", -1, "радиус поиска, км")
	offersSearchCmd.Flags().StringVar(&offersContract, "contract", "", "typeContrat (CDI, CDD, MIS...)")
	offersSearchCmd.Flags().IntVarP(&offersPage, "page", "p", 0, "номер страницы по 50 офферов")

	offersCmd.AddCommand(offersSearchCmd, offersShowCmd)
	rootCmd.AddCommand(offersCmd)
}

func newFranceTravailClient() (*francetravail.Client, error) {
	cfg, err := bootstrap()
	if err != nil {
		return nil, err
	}
	return francetravail.NewClient(francetravail.Config{
		ClientID:     cfg.FranceTravail.ClientID,
		ClientSecret: cfg.FranceTravail.ClientSecret,
		AuthURL:      cfg.FranceTravail.AuthURL,
		APIURL:       cfg.FranceTravail.APIURL,
		Scope:        cfg.FranceTravail.Scope,
		Timeout:      cfg.FranceTravail.Timeout,
	}, nil)
}

func runOffersSearch(cmd *cobra.Command, _ []string) error {
	client, err := newFranceTravailClient()
	if err != nil {
		return err
	}

	params := francetravail.SearchParams{
		Keywords:     offersKeywords,
		Commune:      offersCommune,
		ContractType: offersContract,
		Range:        service.ResultRange(offersPage, 50),
	}
	if offersDistance >= 0 {
		params.Distance = &offersDistance
	}

	result, err := client.SearchOffers(cmd.Context(), params)
	if err != nil {
		return fmt.Errorf("поиск офферов: %w", err)
	}
	return printJSON(result)
}

func runOffersShow(cmd *cobra.Command, args []string) error {
	client, err := newFranceTravailClient()
	if err != nil {
		return err
	}

	offer, err := client.GetOfferDetails(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("детали оффера: %w", err)
	}
	return printJSON(offer)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
