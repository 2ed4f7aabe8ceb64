package domain

// Product — запись каталога, возвращаемая удалённым валидатором товаров.
// Сервис заказов каталогом не владеет и ничего из него не кеширует.
type Product struct {
	ID string
	// Name — отображаемое имя товара; используется только для обогащения.
	Name string
	// PriceMinor — актуальная цена каталога в минимальных денежных единицах.
	PriceMinor int64
}

// IndexProducts строит индекс записей каталога по идентификатору товара.
func IndexProducts(products []Product) map[string]Product {
	index := make(map[string]Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index
}
