package features

import "github.com/Harley062/projeto-IA-Adega/internal/dataset"

// Derived column names.
const (
	ColYear         = "ano"
	ColMonth        = "mes"
	ColDay          = "dia"
	ColWeekday      = "dia_semana"
	ColQuarter      = "trimestre"
	ColISOWeek      = "semana_ano"
	ColMonthSin     = "mes_sin"
	ColMonthCos     = "mes_cos"
	ColWeekdaySin   = "dia_semana_sin"
	ColWeekdayCos   = "dia_semana_cos"
	ColTotalSpent   = "total_gasto"
	ColMeanTicket   = "ticket_medio"
	ColStdSpent     = "std_gasto"
	ColNumPurchases = "num_compras"
	ColTotalItems   = "total_itens"
	ColMeanItems    = "media_itens"
	ColProductPrice = "preco_medio_produto"
	ColPopularity   = "popularidade_produto"
	ColProductSold  = "total_vendido_produto"
	ColRecency      = "recencia"
	ColFrequency    = "frequencia"
	ColMonetary     = "valor_total"
	ColValuePerUnit = "valor_por_unidade"
	ColEngPerAge    = "engajamento_por_idade"
	ColEngTimesAge  = "engajamento_x_idade"
	ColValuePerAge  = "valor_por_idade"
)

// LabelColumn is the training target.
const LabelColumn = dataset.ColChurned

// CategoricalColumns are label encoded, in this order.
var CategoricalColumns = []string{
	dataset.ColName,
	dataset.ColCity,
	dataset.ColSubscriber,
	dataset.ColProductName,
	dataset.ColCountry,
	dataset.ColGrapeType,
}

// ExpectedColumns is the feature vector layout shared by training and scoring.
var ExpectedColumns = []string{
	dataset.ColPurchaseID, dataset.ColCustomerID, dataset.ColProductID, dataset.ColValue, dataset.ColQuantity,
	dataset.ColName, dataset.ColAge, dataset.ColCity, dataset.ColEngagement, dataset.ColSubscriber,
	dataset.ColProductName, dataset.ColCountry, dataset.ColVintage, dataset.ColGrapeType,
	ColYear, ColMonth, ColDay, ColWeekday, ColQuarter, ColISOWeek,
	ColMonthSin, ColMonthCos, ColWeekdaySin, ColWeekdayCos,
	ColTotalSpent, ColMeanTicket, ColStdSpent, ColNumPurchases, ColTotalItems, ColMeanItems,
	ColProductPrice, ColPopularity, ColProductSold,
	ColRecency, ColFrequency, ColMonetary,
	ColValuePerUnit, ColEngPerAge, ColEngTimesAge, ColValuePerAge,
}
