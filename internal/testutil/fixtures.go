package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteCSV writes a delimited file with a header line into dir and returns its path.
func WriteCSV(t testing.TB, dir, name, delim string, header []string, rows ...[]string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(strings.Join(header, delim))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r, delim))
		b.WriteByte('\n')
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

// Headers of the three source files.
var (
	CustomerHeader = []string{"cliente_id", "nome", "idade", "cidade", "pontuacao_engajamento", "assinante_clube", "cancelou_assinatura"}
	ProductHeader  = []string{"produto_id", "nome_produto", "pais", "tipo_uva", "safra"}
	PurchaseHeader = []string{"compra_id", "cliente_id", "produto_id", "valor", "quantidade", "data_compra"}
)

// WriteScenario writes the minimal three-file data set: one customer in
// São Paulo, one Chilean product and two purchases of 100 and 300 placed
// thirty days apart. It returns the data directory.
func WriteScenario(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	WriteCSV(t, dir, "Cliente.csv", ";", CustomerHeader,
		[]string{"1", "Ana", "35", "São Paulo", "7.5", "Sim", "Não"})
	WriteCSV(t, dir, "produtos.csv", ";", ProductHeader,
		[]string{"1", "Carmenere Reserva", "Chile", "Carmenere", "2019"})
	WriteCSV(t, dir, "Compras.csv", ";", PurchaseHeader,
		[]string{"1", "1", "1", "100.0", "1", "2024-01-01"},
		[]string{"2", "1", "1", "300.0", "2", "2024-01-31"})
	return dir
}

// WriteTrainingSet writes a larger synthetic data set with both classes of
// the churn label, suitable for training every candidate model.
func WriteTrainingSet(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()

	cities := []string{"São Paulo", "Rio de Janeiro", "Curitiba", "Recife"}
	grapes := []string{"Malbec", "Cabernet", "Merlot"}
	countries := []string{"Argentina", "Chile", "França"}

	var customers, products, purchases [][]string
	for p := 1; p <= 6; p++ {
		products = append(products, []string{
			itoa(p), "Vinho " + itoa(p), countries[p%len(countries)], grapes[p%len(grapes)], itoa(2015 + p),
		})
	}

	id := 1
	for c := 1; c <= 40; c++ {
		churned := c%3 == 0
		engagement := "8"
		flag := "Sim"
		if churned {
			engagement = "2"
			flag = "Não"
		}
		churn := "Não"
		if churned {
			churn = "Sim"
		}
		customers = append(customers, []string{
			itoa(c), "Cliente " + itoa(c), itoa(25 + c%30), cities[c%len(cities)], engagement, flag, churn,
		})

		n := 3
		if churned {
			n = 1
		}
		for k := 0; k < n; k++ {
			value := 80 + 40*k + c%7*10
			if churned {
				value = 50 + c%5*5
			}
			day := 1 + (c+k*9)%28
			month := 1 + (k*4+c)%12
			purchases = append(purchases, []string{
				itoa(id), itoa(c), itoa(1 + (c+k)%6), itoa(value), itoa(1 + k%3),
				"2024-" + pad(month) + "-" + pad(day),
			})
			id++
		}
	}

	WriteCSV(t, dir, "Cliente.csv", ";", CustomerHeader, customers...)
	WriteCSV(t, dir, "produtos.csv", ";", ProductHeader, products...)
	WriteCSV(t, dir, "Compras.csv", ";", PurchaseHeader, purchases...)
	return dir
}

func itoa(n int) string { return strconv.Itoa(n) }

func pad(n int) string { return fmt.Sprintf("%02d", n) }
