package memory

import "github.com/IanKulin/route-demo/internal/domain"

// SeedCustomers возвращает демонстрационный набор клиентов.
func SeedCustomers() []domain.Customer {
	return []domain.Customer{
		{ID: "1", Name: "Alice Johnson", Address: "123 Main St, Springfield"},
		{ID: "2", Name: "Bob Smith", Address: "456 Oak St, Shelbyville"},
		{ID: "3", Name: "Charlie Brown", Address: "789 Pine St, Capital City"},
		{ID: "4", Name: "Diana Prince", Address: "101 Maple St, Gotham"},
		{ID: "5", Name: "Ethan Hunt", Address: "202 Elm St, Metropolis"},
		{ID: "6", Name: "Fiona Glenanne", Address: "303 Birch St, Star City"},
		{ID: "7", Name: "George Costanza", Address: "404 Cedar St, Quahog"},
		{ID: "8", Name: "Hannah Abbott", Address: "505 Spruce St, Smallville"},
		{ID: "9", Name: "Isaac Newton", Address: "606 Redwood St, Hill Valley"},
		{ID: "10", Name: "Julia Roberts", Address: "707 Sequoia St, Twin Peaks"},
		{ID: "11", Name: "Kevin Malone", Address: "808 Fir St, Pawnee"},
		{ID: "12", Name: "Laura Palmer", Address: "909 Palm St, Sunnydale"},
		{ID: "13", Name: "Michael Scott", Address: "1001 Aspen St, Scranton"},
		{ID: "14", Name: "Nancy Drew", Address: "1102 Chestnut St, Riverdale"},
		{ID: "15", Name: "Oscar Wilde", Address: "1203 Willow St, Arkham"},
		{ID: "16", Name: "Pam Beesly", Address: "1304 Alder St, Hawkins"},
		{ID: "17", Name: "Quincy Adams", Address: "1405 Poplar St, Westview"},
		{ID: "18", Name: "Rachel Green", Address: "1506 Sycamore St, Greendale"},
		{ID: "19", Name: "Steve Rogers", Address: "1607 Magnolia St, Wakanda"},
		{ID: "20", Name: "Tony Stark", Address: "1708 Bonsai St, Atlantis"},
	}
}

// SeedOrders возвращает демонстрационный набор заказов, по одному на клиента.
func SeedOrders() []domain.Order {
	return []domain.Order{
		{ID: "1", CustomerID: "3", Date: "2025-03-01", Value: 100},
		{ID: "2", CustomerID: "7", Date: "2025-03-02", Value: 250},
		{ID: "3", CustomerID: "1", Date: "2025-03-03", Value: 75},
		{ID: "4", CustomerID: "10", Date: "2025-03-04", Value: 300},
		{ID: "5", CustomerID: "15", Date: "2025-03-05", Value: 50},
		{ID: "6", CustomerID: "6", Date: "2025-03-06", Value: 120},
		{ID: "7", CustomerID: "12", Date: "2025-03-07", Value: 90},
		{ID: "8", CustomerID: "4", Date: "2025-03-08", Value: 200},
		{ID: "9", CustomerID: "18", Date: "2025-03-09", Value: 180},
		{ID: "10", CustomerID: "9", Date: "2025-03-10", Value: 250},
		{ID: "11", CustomerID: "2", Date: "2025-03-11", Value: 130},
		{ID: "12", CustomerID: "14", Date: "2025-03-12", Value: 60},
		{ID: "13", CustomerID: "5", Date: "2025-03-13", Value: 110},
		{ID: "14", CustomerID: "8", Date: "2025-03-14", Value: 175},
		{ID: "15", CustomerID: "11", Date: "2025-03-15", Value: 200},
		{ID: "16", CustomerID: "13", Date: "2025-03-16", Value: 225},
		{ID: "17", CustomerID: "16", Date: "2025-03-17", Value: 95},
		{ID: "18", CustomerID: "19", Date: "2025-03-18", Value: 160},
		{ID: "19", CustomerID: "17", Date: "2025-03-19", Value: 140},
		{ID: "20", CustomerID: "20", Date: "2025-03-20", Value: 310},
	}
}
